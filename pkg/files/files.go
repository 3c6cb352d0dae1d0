// Package files handles output placement and input archival for the CLI.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// WriteDocument writes an import document into dir under a unique name and
// returns the full path.
func WriteDocument(dir, document string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, uuid.NewString()+".xml")
	if err := os.WriteFile(path, []byte(document), 0o644); err != nil {
		return "", fmt.Errorf("writing document: %w", err)
	}
	return path, nil
}

// ArchiveInput moves a processed input file into archiveDir. Name collisions
// get a timestamp prefix so repeated imports of the same file never clobber
// each other.
func ArchiveInput(inputPath, archiveDir string) (string, error) {
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", fmt.Errorf("creating archive directory: %w", err)
	}
	base := filepath.Base(inputPath)
	dest := filepath.Join(archiveDir, base)
	if _, err := os.Stat(dest); err == nil {
		dest = filepath.Join(archiveDir, time.Now().Format("20060102_150405")+"_"+base)
	}
	if err := os.Rename(inputPath, dest); err != nil {
		return "", fmt.Errorf("archiving input: %w", err)
	}
	return dest, nil
}
