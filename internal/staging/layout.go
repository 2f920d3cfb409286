package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	attachmentsDirName = "attachments"
	fallbackFileName   = "attachment"
)

// Layout describes the staging directories shared by the fetch and
// submission stages:
//
//	<download>/<name>.eml
//	<processed>/<name>/<name>.pdf
//	<processed>/<name>/attachments/<file>
//	<responses>/<name>.txt
type Layout struct {
	DownloadDir  string
	ProcessedDir string
	ResponsesDir string
}

// Group is one staged folder selected for submission
type Group struct {
	FolderName  string
	EmailPath   string
	Attachments []string
}

// NewLayout creates a new staging layout
func NewLayout(downloadDir, processedDir, responsesDir string) *Layout {
	return &Layout{
		DownloadDir:  downloadDir,
		ProcessedDir: processedDir,
		ResponsesDir: responsesDir,
	}
}

// FolderPath returns the staged folder for a derived name
func (l *Layout) FolderPath(name string) string {
	return filepath.Join(l.ProcessedDir, name)
}

// AttachmentsDir returns the attachments subfolder of a staged folder
func (l *Layout) AttachmentsDir(name string) string {
	return filepath.Join(l.FolderPath(name), attachmentsDirName)
}

// PDFPath returns where the rendered PDF of a staged folder lives
func (l *Layout) PDFPath(name string) string {
	return filepath.Join(l.FolderPath(name), name+".pdf")
}

// EMLPath returns where the raw document of a staged folder is kept
func (l *Layout) EMLPath(name string) string {
	return filepath.Join(l.DownloadDir, name+".eml")
}

// ResponsePath returns the workflow response record of a staged folder
func (l *Layout) ResponsePath(name string) string {
	return filepath.Join(l.ResponsesDir, name+".txt")
}

// Prepare creates the staged folder and its attachments subfolder
func (l *Layout) Prepare(name string) error {
	if err := os.MkdirAll(l.AttachmentsDir(name), 0755); err != nil {
		return fmt.Errorf("failed to create staged folder %s: %w", name, err)
	}
	return nil
}

// WriteEML stores the raw mail document
func (l *Layout) WriteEML(name string, raw []byte) (string, error) {
	if err := os.MkdirAll(l.DownloadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	path := l.EMLPath(name)
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// WriteAttachment stores attachment bytes in the staged folder. Directory
// components of fileName are dropped so the file always lands inside
// attachments/.
func (l *Layout) WriteAttachment(name, fileName string, data []byte) (string, error) {
	path := filepath.Join(l.AttachmentsDir(name), attachmentBase(fileName))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write attachment %s: %w", path, err)
	}
	return path, nil
}

// WriteResponse persists a workflow response body, replacing any earlier one
func (l *Layout) WriteResponse(name string, body []byte) (string, error) {
	if err := os.MkdirAll(l.ResponsesDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create responses directory: %w", err)
	}
	path := l.ResponsePath(name)
	if err := os.WriteFile(path, body, 0644); err != nil {
		return "", fmt.Errorf("failed to write response %s: %w", path, err)
	}
	return path, nil
}

// Scan snapshots the processed root and selects, per staged folder, the
// files modified strictly after marker. A folder is only returned when it
// holds such a PDF; its fresh attachments ride along. Folders that cannot
// be read are skipped and reported through the joined error while the
// readable ones are still returned.
func (l *Layout) Scan(marker time.Time) ([]Group, error) {
	folders, err := l.listFolders()
	if err != nil {
		return nil, err
	}

	var (
		groups []Group
		errs   []error
	)
	for _, name := range folders {
		group, ok, err := l.scanFolder(name, marker)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			groups = append(groups, group)
		}
	}
	return groups, errors.Join(errs...)
}

// listFolders returns the sorted, de-duplicated immediate subdirectories
// of the processed root
func (l *Layout) listFolders() ([]string, error) {
	entries, err := os.ReadDir(l.ProcessedDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", l.ProcessedDir, err)
	}

	seen := make(map[string]struct{}, len(entries))
	folders := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if _, dup := seen[name]; dup {
			continue
		}
		info, err := os.Stat(filepath.Join(l.ProcessedDir, name))
		if err != nil || !info.IsDir() {
			continue
		}
		seen[name] = struct{}{}
		folders = append(folders, name)
	}
	sort.Strings(folders)
	return folders, nil
}

func (l *Layout) scanFolder(name string, marker time.Time) (Group, bool, error) {
	group := Group{FolderName: name}
	folder := l.FolderPath(name)

	entries, err := os.ReadDir(folder)
	if err != nil {
		return group, false, fmt.Errorf("failed to list %s: %w", folder, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			continue
		}
		path := filepath.Join(folder, entry.Name())
		if isFresh(path, marker) {
			group.EmailPath = path
		}
	}

	attachments := l.AttachmentsDir(name)
	if info, err := os.Stat(attachments); err == nil && info.IsDir() {
		entries, err := os.ReadDir(attachments)
		if err != nil {
			return group, false, fmt.Errorf("failed to list %s: %w", attachments, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(attachments, entry.Name())
			if isFresh(path, marker) {
				group.Attachments = append(group.Attachments, path)
			}
		}
	}

	return group, group.EmailPath != "", nil
}

// isFresh reports whether path was modified strictly after marker
func isFresh(path string, marker time.Time) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.ModTime().After(marker)
}

func attachmentBase(fileName string) string {
	base := filepath.Base(strings.ReplaceAll(fileName, `\`, "/"))
	switch base {
	case "", ".", "..", "/":
		return fallbackFileName
	}
	return base
}
