package usage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dvalenciar/labelworks-backend/pkg/db/models"
	"github.com/dvalenciar/labelworks-backend/pkg/enums"
)

// Snapshot is the current-month usage for one account.
type Snapshot struct {
	PeriodMonth     string
	ProductsCreated int64
	LabelsCreated   int64
}

// CountFor returns the counter matching the resource family.
func (s Snapshot) CountFor(resource enums.UsageResource) int64 {
	switch resource {
	case enums.UsageResourceProducts:
		return s.ProductsCreated
	case enums.UsageResourceLabels:
		return s.LabelsCreated
	default:
		return 0
	}
}

// ServiceParams groups dependencies for the usage service.
type ServiceParams struct {
	Repo Repository
	Now  func() time.Time
}

// Service records metered resource activity and answers usage queries.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds a usage service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Service{repo: params.Repo, now: params.Now}, nil
}

// RecordProductCreated increments the current month's product counter.
func (s *Service) RecordProductCreated(ctx context.Context, accountID uuid.UUID) error {
	return s.repo.Increment(ctx, accountID, models.PeriodKey(s.now()), enums.UsageResourceProducts, 1)
}

// RecordLabelCreated increments the current month's label counter.
func (s *Service) RecordLabelCreated(ctx context.Context, accountID uuid.UUID) error {
	return s.repo.Increment(ctx, accountID, models.PeriodKey(s.now()), enums.UsageResourceLabels, 1)
}

// CurrentUsage returns the account's counters for the current calendar month.
// A month with no activity yet reads as zeros.
func (s *Service) CurrentUsage(ctx context.Context, accountID uuid.UUID) (Snapshot, error) {
	period := models.PeriodKey(s.now())
	counter, err := s.repo.Find(ctx, accountID, period)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{PeriodMonth: period}
	if counter != nil {
		snap.ProductsCreated = counter.ProductsCreated
		snap.LabelsCreated = counter.LabelsCreated
	}
	return snap, nil
}

// Percentage returns how much of limit the count consumes, floored to an
// integer percent. A non-positive limit means the resource is unlimited and
// always reads as zero.
func Percentage(count int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(count * 100 / int64(limit))
}
