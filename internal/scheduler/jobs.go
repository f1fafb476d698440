package scheduler

import (
	"context"

	"go.uber.org/zap"
)

// InvoiceOverdueJob moves draft and sent invoices past their due date to overdue.
func (s *Scheduler) InvoiceOverdueJob(ctx context.Context) error {
	count, err := s.invoices.MarkOverdue(ctx, s.clock.Now())
	if count > 0 {
		jobRunFromContext(ctx).AddProcessed(count)
		s.metrics.AddBatchProcessed(JobInvoiceOverdue, "invoices", count)
	}
	if err != nil {
		s.logJobError(ctx, "scheduler.invoice_overdue.failed", err, zap.Int("marked", count))
		return err
	}
	return nil
}

// UsageRolloverJob deletes usage counters whose period ended, one batch at a
// time, until a short batch signals the backlog is drained.
func (s *Scheduler) UsageRolloverJob(ctx context.Context) error {
	now := s.clock.Now()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		count, err := s.usage.RolloverExpired(ctx, now, s.cfg.BatchSize)
		if count > 0 {
			jobRunFromContext(ctx).AddProcessed(count)
			s.metrics.AddBatchProcessed(JobUsageRollover, "feature_usages", count)
		}
		if err != nil {
			s.logJobError(ctx, "scheduler.usage_rollover.failed", err, zap.Int("deleted", count))
			return err
		}
		if count < s.cfg.BatchSize {
			return nil
		}
	}
}
