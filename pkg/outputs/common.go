// Package outputs holds the report output providers: console, JSON, CSV and
// Markdown files, plus the optional jq row filter. Providers receive the
// same Result a runbook emits and decide themselves whether the payload
// shape is one they can write.
package outputs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GetFullPath constructs the full file path from filename and output path
func GetFullPath(filename string, outputPath string) string {
	return filepath.Join(outputPath, filename)
}

// DefaultFileName builds <prefix>-<timestamp>-<shortid>.<ext>.
func DefaultFileName(prefix, ext string) string {
	short := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s-%s-%s.%s", prefix, time.Now().Format("20060102-150405"), short, ext)
}

// ensureDir creates the directory holding fullpath when it does not exist.
func ensureDir(fullpath string) error {
	dir := filepath.Dir(fullpath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, os.ModePerm)
	}
	return nil
}
