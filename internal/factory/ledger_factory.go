package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/adapters/ledger"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/config"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/core"
	"go.uber.org/zap"
)

// LedgerFactory creates submission ledgers based on configuration
type LedgerFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLedgerFactory creates a new ledger factory
func NewLedgerFactory(cfg *config.Config, logger *zap.Logger) *LedgerFactory {
	return &LedgerFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateLedger creates a submission ledger based on the configuration. The
// "none" type disables the ledger and yields nil.
func (f *LedgerFactory) CreateLedger() (core.SubmissionLedger, error) {
	lc, err := f.cfg.GetLedger()
	if err != nil {
		return nil, fmt.Errorf("invalid ledger configuration: %w", err)
	}

	switch lc.Type {
	case "none", "":
		f.logger.Info("Submission ledger disabled")
		return nil, nil
	case "memory":
		return ledger.NewMemoryLedger(f.logger, lc.Retention, lc.CleanupFrequency), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(lc.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return ledger.NewSQLiteLedger(lc.SQLitePath, f.logger, lc.Retention, lc.CleanupFrequency)
	case "mysql":
		return ledger.NewMySQLLedger(lc.MySQLDSN, f.logger, lc.Retention, lc.CleanupFrequency)
	default:
		return nil, fmt.Errorf("unsupported ledger type: %s", lc.Type)
	}
}
