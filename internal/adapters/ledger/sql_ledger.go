package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/core"
)

// sqlLedger holds the statements shared by the SQLite and MySQL ledgers.
// Timestamps are stored as Unix nanoseconds so both engines order and
// compare them the same way.
type sqlLedger struct {
	db          *sql.DB
	logger      *zap.Logger
	retention   time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
	name        string
}

func newSQLLedger(db *sql.DB, name string, logger *zap.Logger, retention, cleanupFreq time.Duration) *sqlLedger {
	l := &sqlLedger{
		db:          db,
		logger:      logger,
		retention:   retention,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
		now:         time.Now,
		name:        name,
	}

	if cleanupFreq > 0 {
		go l.startCleanupTask()
	}

	return l
}

// Record stores a submission attempt
func (l *sqlLedger) Record(ctx context.Context, rec *core.SubmissionRecord) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO submissions
			(folder_name, workflow_status, email_upload_id, attachment_uploads, dispatched, error, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.FolderName, rec.WorkflowStatus, rec.EmailUploadID, rec.AttachmentUploads,
		rec.Dispatched, rec.Error, rec.SubmittedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert submission record: %w", err)
	}
	return nil
}

// List returns up to limit records, newest first
func (l *sqlLedger) List(ctx context.Context, limit int) ([]core.SubmissionRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT folder_name, workflow_status, email_upload_id, attachment_uploads, dispatched, error, submitted_at
		FROM submissions
		ORDER BY submitted_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query submission records: %w", err)
	}
	defer rows.Close()

	records := []core.SubmissionRecord{}
	for rows.Next() {
		var (
			rec         core.SubmissionRecord
			submittedAt int64
		)
		if err := rows.Scan(&rec.FolderName, &rec.WorkflowStatus, &rec.EmailUploadID,
			&rec.AttachmentUploads, &rec.Dispatched, &rec.Error, &submittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission record: %w", err)
		}
		rec.SubmittedAt = time.Unix(0, submittedAt).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read submission records: %w", err)
	}
	return records, nil
}

// Cleanup removes records older than the retention window
func (l *sqlLedger) Cleanup(ctx context.Context) error {
	if l.retention <= 0 {
		return nil
	}

	cutoff := l.now().Add(-l.retention).UnixNano()
	result, err := l.db.ExecContext(ctx, `
		DELETE FROM submissions
		WHERE submitted_at <= ?
	`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to clean up expired records: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		l.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		l.logger.Debug("Cleaned up expired submission records", zap.Int64("expired_count", rowsAffected))
	}
	return nil
}

func (l *sqlLedger) startCleanupTask() {
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

// Stop stops the background cleanup task and closes the database connection
func (l *sqlLedger) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		if err := l.db.Close(); err != nil {
			l.logger.Error("Failed to close "+l.name+" database", zap.Error(err))
		}
	})
}
