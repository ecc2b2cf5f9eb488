package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
	"plan-ledger.backend/pkg/logger"
	"plan-ledger.backend/pkg/metrics"
)

const defaultSweepBatch = 100

// StalePaymentFailer is the slice of the payment ledger the sweeper needs.
type StalePaymentFailer interface {
	FailStale(ctx context.Context, olderThan time.Time, limit int) (int64, error)
}

// PendingPaymentExpiryJob fails payments that stayed pending past their TTL
// without ever reaching the gateway. Orders the gateway knows about are left
// for the callback, verify or webhook paths to settle.
type PendingPaymentExpiryJob struct {
	repo     StalePaymentFailer
	ttl      time.Duration
	interval time.Duration
	batch    int
	now      func() time.Time
	stop     chan struct{}
}

func NewPendingPaymentExpiryJob(repo StalePaymentFailer, ttl, interval time.Duration) *PendingPaymentExpiryJob {
	return &PendingPaymentExpiryJob{
		repo:     repo,
		ttl:      ttl,
		interval: interval,
		batch:    defaultSweepBatch,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

func (j *PendingPaymentExpiryJob) Start(ctx context.Context) {
	logger.Info(ctx, "Starting pending payment expiry job",
		zap.Duration("ttl", j.ttl),
		zap.Duration("interval", j.interval),
	)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Pending payment expiry job stopped (context cancelled)")
			return
		case <-j.stop:
			logger.Info(ctx, "Pending payment expiry job stopped")
			return
		case <-ticker.C:
			j.processStalePayments(ctx)
		}
	}
}

func (j *PendingPaymentExpiryJob) Stop() {
	close(j.stop)
}

func (j *PendingPaymentExpiryJob) processStalePayments(ctx context.Context) {
	cutoff := j.now().Add(-j.ttl)

	n, err := j.repo.FailStale(ctx, cutoff, j.batch)
	if err != nil {
		logger.Error(ctx, "Failed to expire stale pending payments", zap.Error(err))
		return
	}
	if n == 0 {
		return
	}

	metrics.AddStalePaymentsFailed(n)
	logger.Info(ctx, "Expired stale pending payments", zap.Int64("count", n), zap.Time("cutoff", cutoff))
}
