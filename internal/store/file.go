package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/smollog/internal/errors"
	"github.com/Iron-Ham/smollog/internal/record"
)

// FileStore writes each record to "<dir>/<padded seq>: <label>.json".
type FileStore struct {
	fs       afero.Fs
	dir      string
	padWidth int
	mu       sync.Mutex
}

// NewFileStore creates a FileStore writing into dir on fs. The directory is
// created on first write if it does not exist.
func NewFileStore(fs afero.Fs, dir string, padWidth int) *FileStore {
	if padWidth <= 0 {
		padWidth = record.DefaultPadWidth
	}
	return &FileStore{fs: fs, dir: dir, padWidth: padWidth}
}

// Dir returns the directory records are written to.
func (s *FileStore) Dir() string {
	return s.dir
}

// Destination returns the path rec is written to.
func (s *FileStore) Destination(rec *record.Record) string {
	return filepath.Join(s.dir, rec.FileName(s.padWidth))
}

// Store renders rec and writes it atomically. Failures are returned as
// *errors.StorageError carrying the path and sequence.
func (s *FileStore) Store(ctx context.Context, rec *record.Record) error {
	path := s.Destination(rec)
	fail := func(msg string, cause error) *errors.StorageError {
		return errors.NewStorageError(msg, cause).WithPath(path).WithSequence(rec.Sequence)
	}

	// Cancellation is transient; the record can be stored again.
	if err := ctx.Err(); err != nil {
		return fail("record not written", err).WithRetryable(true)
	}

	data, err := rec.Render()
	if err != nil {
		return fail("failed to render record", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return fail("failed to create run directory", err)
	}
	if err := atomicWriteFile(s.fs, path, data, 0644); err != nil {
		return fail("failed to write record", err)
	}
	return nil
}

// atomicWriteFile writes data to a temp file in the target directory and
// renames it into place, so readers never observe a partial record.
func atomicWriteFile(fs afero.Fs, path string, data []byte, perm os.FileMode) error {
	tmpFile, err := afero.TempFile(fs, filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = fs.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := fs.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := fs.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
