package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"redditsaver/pkg/fetcher"
	"redditsaver/pkg/logger"
	"redditsaver/pkg/reddit"
)

// Format is an export encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// exportVersion is bumped when the Export layout changes
const exportVersion = 1

// Export is the document written to disk for one fetch run
type Export struct {
	Version    int       `json:"version" yaml:"version"`
	ExportedAt time.Time `json:"exported_at" yaml:"exported_at"`
	// Exhausted is true when the last page carried a null cursor
	Exhausted  bool      `json:"complete" yaml:"complete"`
	MediaCount int       `json:"media_count" yaml:"media_count"`

	fetcher.ResultSet `yaml:",inline"`
}

// Manager writes and reads exports in one directory
type Manager struct {
	outputDir string
	pretty    bool
	logger    logger.Logger
}

// NewManager creates the output directory if needed
func NewManager(outputDir string, pretty bool, log logger.Logger) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		outputDir: outputDir,
		pretty:    pretty,
		logger:    logger.OrNop(log),
	}, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// PathFor returns <dir>/<account>_saved.<ext>
func (m *Manager) PathFor(account string, format Format) string {
	name := strings.Map(func(r rune) rune {
		if r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, reddit.SanitizeUsername(account))
	if name == "" {
		name = "unknown"
	}
	return filepath.Join(m.outputDir, fmt.Sprintf("%s_saved.%s", name, format))
}

// Save writes rs atomically and returns the file path. An existing export
// for the same account is kept as <path>.backup.
func (m *Manager) Save(rs *fetcher.ResultSet, format Format) (string, error) {
	if rs == nil {
		return "", fmt.Errorf("nothing to export")
	}
	if format == "" {
		format = FormatJSON
	}

	doc := Export{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Exhausted:  rs.Complete(),
		MediaCount: rs.MediaCount(),
		ResultSet:  *rs,
	}

	data, err := m.encode(&doc, format)
	if err != nil {
		return "", err
	}

	path := m.PathFor(rs.Account, format)
	if err := backup(path); err != nil {
		return "", err
	}
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return "", err
	}

	m.logger.InfoWithFields("Export saved", map[string]interface{}{
		"path":      path,
		"account":   rs.Account,
		"run_id":    rs.RunID,
		"pages":     len(rs.Pages),
		"processed": rs.Processed,
		"format":    string(format),
	})

	return path, nil
}

func (m *Manager) encode(doc *Export, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		if m.pretty {
			enc.SetIndent("", "  ")
		}
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode export: %w", err)
		}
		return buf.Bytes(), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode export: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode export: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %q", format)
	}
}

// Load reads an export written by Save. The format follows the file extension.
func Load(path string) (*Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}

	var doc Export
	switch FormatFromPath(path) {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode export %s: %w", path, err)
	}

	if doc.Version != exportVersion {
		return nil, fmt.Errorf("unsupported export version %d in %s", doc.Version, path)
	}
	return &doc, nil
}

// FormatFromPath maps .yaml and .yml to FormatYAML and everything else to FormatJSON
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// backup copies an existing file to path.backup
func backup(path string) error {
	src, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open export for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(path + ".backup")
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy export to backup: %w", err)
	}
	return nil
}

// writeFileAtomic writes through a synced temp file renamed over path
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close export: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set export permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
