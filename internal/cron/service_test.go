package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/dvalenciar/labelworks-backend/pkg/logger"
)

type fakeLock struct {
	acquired bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "scheduler-test"})
	registry := NewRegistry(&testJob{name: "success"}, &testJob{name: "fail", err: errors.New("boom")})
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     &fakeLock{},
		Interval: 0,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx := context.Background()
	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	for _, job := range registry.Jobs() {
		if job.(*testJob).runs != 1 {
			t.Fatalf("expected job %s to run once, ran %d", job.Name(), job.(*testJob).runs)
		}
	}
}

func TestServiceRunJobReturnsJobError(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "scheduler-test"})
	service, err := NewService(ServiceParams{
		Logger: logg,
		Lock:   &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	boom := errors.New("boom")
	if err := service.RunJob(context.Background(), &testJob{name: "fail", err: boom}); !errors.Is(err, boom) {
		t.Fatalf("expected job error, got %v", err)
	}
	if err := service.RunJob(context.Background(), &testJob{name: "ok"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
