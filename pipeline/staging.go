package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// stagedFile is a temp file next to dest that replaces dest on commit.
type stagedFile struct {
	dest string
	file *os.File
}

func stage(dest string) (*stagedFile, error) {
	if err := ensureDir(dest); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create staging file for %q: %w", dest, err)
	}
	return &stagedFile{dest: dest, file: f}, nil
}

func (s *stagedFile) path() string {
	return s.file.Name()
}

// commit syncs and closes the temp file, then renames it over dest.
func (s *stagedFile) commit() error {
	if err := s.file.Sync(); err != nil {
		_ = s.discard()
		return fmt.Errorf("sync %q: %w", s.path(), err)
	}
	if err := s.file.Close(); err != nil {
		_ = os.Remove(s.path())
		return fmt.Errorf("close %q: %w", s.path(), err)
	}
	return s.publish()
}

// publish renames the (already closed) temp file over dest. The published
// file takes the mode of the file it replaces, or 0644 for a new one.
func (s *stagedFile) publish() error {
	if err := os.Chmod(s.path(), destMode(s.dest)); err != nil {
		_ = os.Remove(s.path())
		return fmt.Errorf("chmod %q: %w", s.path(), err)
	}
	if err := os.Rename(s.path(), s.dest); err != nil {
		_ = os.Remove(s.path())
		return fmt.Errorf("rename %q to %q: %w", s.path(), s.dest, err)
	}
	return nil
}

func (s *stagedFile) discard() error {
	closeErr := s.file.Close()
	if errors.Is(closeErr, os.ErrClosed) {
		closeErr = nil
	}
	removeErr := os.Remove(s.path())
	if errors.Is(removeErr, os.ErrNotExist) {
		removeErr = nil
	}
	return errors.Join(closeErr, removeErr)
}

func destMode(dest string) os.FileMode {
	if info, err := os.Stat(dest); err == nil && info.Mode().IsRegular() {
		return info.Mode().Perm()
	}
	return 0o644
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
