package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ArtifactWriter writes immutable, timestamp-suffixed JSON report artifacts.
// An artifact is never overwritten: a changed result at the same instant is a
// bug worth surfacing, not something to paper over.
type ArtifactWriter struct {
	dir string
}

// NewArtifactWriter creates a writer rooted at dir
func NewArtifactWriter(dir string) *ArtifactWriter {
	return &ArtifactWriter{dir: dir}
}

// Write marshals v and writes it to <dir>/<name>-<ts>.json with O_EXCL.
// Returns the written path.
func (w *ArtifactWriter) Write(name string, ts time.Time, v any) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("%s-%s.json", name, ts.UTC().Format("20060102T150405Z")))

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal artifact %s: %w", name, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("artifact already exists, refusing to overwrite: %s", path)
		}
		return "", fmt.Errorf("create artifact: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}
