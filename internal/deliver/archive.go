package deliver

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Archive writes html to dir as digest_<timestamp>.html and returns the
// path. The directory is created when missing.
func Archive(dir, html string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating archive dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("digest_%s.html", now.Format("2006-01-02_15-04-05")))
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("writing archive: %w", err)
	}
	return path, nil
}
