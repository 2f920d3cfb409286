package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLLedger is a MySQL implementation of the SubmissionLedger interface
type MySQLLedger struct {
	*sqlLedger
}

// NewMySQLLedger creates a new MySQL ledger
func NewMySQLLedger(dsn string, logger *zap.Logger, retention, cleanupFreq time.Duration) (*MySQLLedger, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS submissions (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			folder_name VARCHAR(255) NOT NULL,
			workflow_status INT NOT NULL,
			email_upload_id VARCHAR(255) NOT NULL DEFAULT '',
			attachment_uploads INT NOT NULL DEFAULT 0,
			dispatched BOOLEAN NOT NULL DEFAULT FALSE,
			error TEXT NOT NULL,
			submitted_at BIGINT NOT NULL,
			INDEX idx_submitted_at (submitted_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLLedger{newSQLLedger(db, "MySQL", logger, retention, cleanupFreq)}, nil
}
