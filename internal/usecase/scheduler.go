package usecase

import (
	"context"
	"time"

	"RingsideSync/internal/domain"
	"RingsideSync/internal/ports"
)

// QualityTicker is the monitoring job driven on a fixed cadence.
type QualityTicker interface {
	Tick(ctx context.Context, at time.Time) domain.QualityMetrics
}

// Scheduler wires the ticker driver with the quality monitor.
type Scheduler struct {
	driver  ports.Scheduler
	monitor QualityTicker
}

// NewScheduler returns a helper to start/stop the monitoring job.
func NewScheduler(driver ports.Scheduler, monitor QualityTicker) *Scheduler {
	return &Scheduler{driver: driver, monitor: monitor}
}

// Start registers the monitor tick with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.monitor == nil {
		return nil
	}

	job := func(trigger time.Time) {
		_ = s.monitor.Tick(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
