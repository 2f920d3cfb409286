package cursor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Layouts accepted when reading a cursor, newest format first. The
// offset-less forms are what Python's isoformat() writes for naive times.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// FileCursor persists the instant of the last successful poll in a flat file
type FileCursor struct {
	path   string
	logger *zap.Logger
}

// NewFileCursor creates a new file-backed run cursor
func NewFileCursor(path string, logger *zap.Logger) *FileCursor {
	return &FileCursor{
		path:   path,
		logger: logger,
	}
}

// Path returns the cursor file location
func (c *FileCursor) Path() string {
	return c.path
}

// Read returns the last recorded poll instant. A missing, empty or
// malformed file reads as no prior run.
func (c *FileCursor) Read() (time.Time, bool) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("Failed to read run cursor", zap.String("path", c.path), zap.Error(err))
		}
		return time.Time{}, false
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return time.Time{}, false
	}

	ts, err := Parse(text)
	if err != nil {
		c.logger.Debug("Ignoring malformed run cursor", zap.String("path", c.path), zap.Error(err))
		return time.Time{}, false
	}
	return ts, true
}

// Write replaces the cursor with now. The new content is written to a
// temporary file and renamed into place.
func (c *FileCursor) Write(now time.Time) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cursor directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cursor-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary cursor file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(Format(now)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write run cursor: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close run cursor: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("failed to replace run cursor: %w", err)
	}
	return nil
}

// Format renders an instant the way it is stored in the cursor file
func Format(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Parse reads an ISO-8601 timestamp. Values without an offset are UTC.
func Parse(text string) (time.Time, error) {
	for _, layout := range layouts {
		if ts, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", text)
}
