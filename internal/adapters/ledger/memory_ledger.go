package ledger

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/core"
)

// MemoryLedger is an in-memory implementation of the SubmissionLedger interface
type MemoryLedger struct {
	records     []core.SubmissionRecord
	mu          sync.RWMutex
	logger      *zap.Logger
	retention   time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

// NewMemoryLedger creates a new in-memory ledger
func NewMemoryLedger(logger *zap.Logger, retention, cleanupFreq time.Duration) *MemoryLedger {
	ledger := &MemoryLedger{
		logger:      logger,
		retention:   retention,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}

	if cleanupFreq > 0 {
		go ledger.startCleanupTask()
	}

	return ledger
}

// Record stores a submission attempt
func (l *MemoryLedger) Record(ctx context.Context, rec *core.SubmissionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, *rec)
	return nil
}

// List returns up to limit records, newest first
func (l *MemoryLedger) List(ctx context.Context, limit int) ([]core.SubmissionRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]core.SubmissionRecord, 0, min(len(l.records), max(limit, 0)))
	for i := len(l.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.records[i])
	}
	return out, nil
}

// Cleanup removes records older than the retention window
func (l *MemoryLedger) Cleanup(ctx context.Context) error {
	if l.retention <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.retention)
	kept := l.records[:0]
	for _, rec := range l.records {
		if rec.SubmittedAt.After(cutoff) {
			kept = append(kept, rec)
		}
	}
	expired := len(l.records) - len(kept)
	l.records = kept

	l.logger.Debug("Cleaned up expired submission records", zap.Int("expired_count", expired))
	return nil
}

func (l *MemoryLedger) startCleanupTask() {
	ticker := time.NewTicker(l.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := l.Cleanup(context.Background()); err != nil {
				l.logger.Error("Failed to clean up ledger", zap.Error(err))
			}
		case <-l.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task
func (l *MemoryLedger) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}
