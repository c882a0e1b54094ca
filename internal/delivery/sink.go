// Package delivery hands finished export artifacts to their destination.
package delivery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	artifactPerm  = 0o644
	outputDirPerm = 0o755
)

// Sink receives finished artifacts under a suggested file name.
type Sink interface {
	Save(name, contentType string, data []byte) (string, error)
}

// DirSink writes artifacts into a directory. Each file is written to a
// temporary name first and renamed into place, so readers never observe a
// partial report.
type DirSink struct {
	Dir string
}

// NewDirSink creates a sink for dir, creating the directory if needed.
func NewDirSink(dir string) (*DirSink, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(dir, outputDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &DirSink{Dir: dir}, nil
}

// Save writes data to Dir/name and returns the final path.
func (s *DirSink) Save(name, contentType string, data []byte) (string, error) {
	clean, err := sanitizeName(name)
	if err != nil {
		return "", err
	}
	target := filepath.Join(s.Dir, clean)

	tmp, err := os.CreateTemp(s.Dir, "."+clean+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file for %s: %w", clean, err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", clean, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync %s: %w", clean, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", clean, err)
	}
	if err := os.Chmod(tmpName, artifactPerm); err != nil {
		return "", fmt.Errorf("chmod %s: %w", clean, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("rename %s: %w", clean, err)
	}

	log.Info().
		Str("path", target).
		Str("contentType", contentType).
		Int("bytes", len(data)).
		Msg("Saved export artifact")
	return target, nil
}

// sanitizeName keeps artifacts inside the sink directory.
func sanitizeName(name string) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) || base == ".." || base == "" {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return base, nil
}
