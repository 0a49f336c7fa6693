package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dvalenciar/labelworks-backend/pkg/db/models"
	"github.com/dvalenciar/labelworks-backend/pkg/enums"
)

// Repository handles plan, payment method and billing ledger persistence.
// Billing records are append-only: there is deliberately no update method
// for them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreatePlan(ctx context.Context, plan *models.MembershipPlan) error
	UpdatePlan(ctx context.Context, plan *models.MembershipPlan) error
	FindPlanByID(ctx context.Context, id uuid.UUID) (*models.MembershipPlan, error)
	FindDefaultPlan(ctx context.Context) (*models.MembershipPlan, error)
	ListPlans(ctx context.Context, status *enums.PlanStatus) ([]models.MembershipPlan, error)

	CreatePaymentMethod(ctx context.Context, method *models.PaymentMethod) error
	FindDefaultPaymentMethod(ctx context.Context, accountID uuid.UUID) (*models.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, accountID uuid.UUID) ([]models.PaymentMethod, error)
	ClearDefaultPaymentMethod(ctx context.Context, accountID uuid.UUID) error

	CreateBillingRecord(ctx context.Context, record *models.BillingRecord) error
	ListBillingRecords(ctx context.Context, accountID uuid.UUID, limit int) ([]models.BillingRecord, error)
	CountBillingRecordsInMonth(ctx context.Context, at time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a billing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreatePlan(ctx context.Context, plan *models.MembershipPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *repository) UpdatePlan(ctx context.Context, plan *models.MembershipPlan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

func (r *repository) FindPlanByID(ctx context.Context, id uuid.UUID) (*models.MembershipPlan, error) {
	var plan models.MembershipPlan
	if err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) FindDefaultPlan(ctx context.Context) (*models.MembershipPlan, error) {
	var plan models.MembershipPlan
	err := r.db.WithContext(ctx).
		Where("is_default = ?", true).
		Where("status = ?", enums.PlanStatusActive).
		First(&plan).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) ListPlans(ctx context.Context, status *enums.PlanStatus) ([]models.MembershipPlan, error) {
	query := r.db.WithContext(ctx).Order("price ASC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var plans []models.MembershipPlan
	if err := query.Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repository) CreatePaymentMethod(ctx context.Context, method *models.PaymentMethod) error {
	return r.db.WithContext(ctx).Create(method).Error
}

// FindDefaultPaymentMethod returns the account's default active card, or nil
// when none is on file.
func (r *repository) FindDefaultPaymentMethod(ctx context.Context, accountID uuid.UUID) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Where("is_default = ?", true).
		Where("is_active = ?", true).
		First(&method).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &method, nil
}

func (r *repository) ListPaymentMethods(ctx context.Context, accountID uuid.UUID) ([]models.PaymentMethod, error) {
	var methods []models.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("is_default DESC, created_at DESC").
		Find(&methods).Error
	if err != nil {
		return nil, err
	}
	return methods, nil
}

func (r *repository) ClearDefaultPaymentMethod(ctx context.Context, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentMethod{}).
		Where("account_id = ?", accountID).
		Update("is_default", false).Error
}

func (r *repository) CreateBillingRecord(ctx context.Context, record *models.BillingRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) ListBillingRecords(ctx context.Context, accountID uuid.UUID, limit int) ([]models.BillingRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var records []models.BillingRecord
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CountBillingRecordsInMonth counts ledger rows created in the calendar month
// containing at. Used to derive the next invoice sequence number.
func (r *repository) CountBillingRecordsInMonth(ctx context.Context, at time.Time) (int64, error) {
	start := time.Date(at.UTC().Year(), at.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BillingRecord{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&count).Error
	return count, err
}

// NextInvoiceNumber formats the invoice number for the next ledger row in the
// calendar month containing at: INV-<year>-<zero-padded month>-<seq>, where
// seq restarts every month. Callers invoke this inside the same transaction
// that appends the record so the count cannot race with a concurrent append.
func NextInvoiceNumber(ctx context.Context, repo Repository, at time.Time) (string, error) {
	count, err := repo.CountBillingRecordsInMonth(ctx, at)
	if err != nil {
		return "", fmt.Errorf("count billing records: %w", err)
	}
	at = at.UTC()
	return fmt.Sprintf("INV-%d-%02d-%03d", at.Year(), int(at.Month()), count+1), nil
}
