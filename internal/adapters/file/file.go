package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// Local implements port.FileStore on the local filesystem.
type Local struct{}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Readable mirrors access(2) with R_OK, so permission bits are honoured for the effective user.
func (l *Local) Readable(path string) bool {
	return regular(path) && unix.Access(path, unix.R_OK) == nil
}

func (l *Local) Writable(path string) bool {
	return regular(path) && unix.Access(path, unix.W_OK) == nil
}

func (l *Local) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("error reading file size %w", err)
	}

	return info.Size(), nil
}

func (l *Local) Glob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("error matching pattern %w", err)
	}

	files := matches[:0]
	for _, m := range matches {
		if regular(m) {
			files = append(files, m)
		}
	}

	sort.Strings(files)

	return files, nil
}

func (l *Local) MkdirAll(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("error creating directory %w", err)
	}

	return nil
}

func (l *Local) Rename(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("error renaming file %w", err)
	}

	return nil
}

func (l *Local) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("error removing file %w", err)
	}

	log.Debug().Str("path", path).Msg("removed file")

	return nil
}

// RemoveQuietly removes path and only logs failures. A missing file is not a failure.
func (l *Local) RemoveQuietly(path string) {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Err(err).Msg("could not clean up file")
		return
	}
	log.Debug().Str("path", path).Msg("cleaned up file")
}

// CheckDir verifies that path is a directory the process may access with mode (unix.R_OK,
// unix.W_OK or both).
func CheckDir(path string, mode uint32) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}

	if err := unix.Access(path, mode); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return nil
}

func regular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
