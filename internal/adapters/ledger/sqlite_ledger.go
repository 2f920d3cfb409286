package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteLedger is a SQLite implementation of the SubmissionLedger interface
type SQLiteLedger struct {
	*sqlLedger
}

// NewSQLiteLedger creates a new SQLite ledger
func NewSQLiteLedger(dbPath string, logger *zap.Logger, retention, cleanupFreq time.Duration) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS submissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			folder_name TEXT NOT NULL,
			workflow_status INTEGER NOT NULL,
			email_upload_id TEXT NOT NULL DEFAULT '',
			attachment_uploads INTEGER NOT NULL DEFAULT 0,
			dispatched BOOLEAN NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			submitted_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_submitted_at ON submissions(submitted_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &SQLiteLedger{newSQLLedger(db, "SQLite", logger, retention, cleanupFreq)}, nil
}
