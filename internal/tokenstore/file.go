package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileStore keeps the token pair as a JSON document on disk with secure
// permissions. Writes use temp file + rename, so a concurrent reader always
// sees a complete pair, never a half-written one.
type FileStore struct {
	filePath string
}

// Compile-time check to ensure FileStore implements Store
var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore for the given path, creating parent
// directories with 0700 permissions if they don't exist.
func NewFileStore(filePath string) (*FileStore, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	return &FileStore{
		filePath: filePath,
	}, nil
}

// LoadCurrent returns the stored pair. Returns ErrNotFound if the file does
// not exist and rejects files with insecure permissions.
func (f *FileStore) LoadCurrent(ctx context.Context) (TokenPair, error) {
	if err := ctx.Err(); err != nil {
		return TokenPair{}, err
	}

	// Check file permissions before reading
	info, err := os.Stat(f.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return TokenPair{}, ErrNotFound
		}
		return TokenPair{}, &UnavailableError{Err: err}
	}
	if info.Mode().Perm() != 0600 {
		return TokenPair{}, &UnavailableError{
			Err: fmt.Errorf("insecure permissions on %s: %04o (expected 0600)", f.filePath, info.Mode().Perm()),
		}
	}

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return TokenPair{}, &UnavailableError{Err: err}
	}

	var pair TokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return TokenPair{}, &UnavailableError{Err: fmt.Errorf("decoding %s: %w", f.filePath, err)}
	}
	if pair.AccessToken == "" && pair.RefreshToken == "" {
		return TokenPair{}, ErrNotFound
	}
	return pair, nil
}

// Save atomically replaces the stored pair using temp file + rename.
// Sets file permissions to 0600 (owner read/write only).
func (f *FileStore) Save(ctx context.Context, pair TokenPair) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pair.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(pair)
	if err != nil {
		return &UnavailableError{Err: err}
	}

	// Create secure temp file in same directory for atomic rename
	dir := filepath.Dir(f.filePath)
	tempFile, err := os.CreateTemp(dir, "*.tmp")
	if err != nil {
		return &UnavailableError{Err: err}
	}
	tempName := tempFile.Name()
	// Cleanup deferred for all exit paths
	defer func() { _ = os.Remove(tempName) }()
	defer func() { _ = tempFile.Close() }()

	if _, err := tempFile.Write(data); err != nil {
		return &UnavailableError{Err: err}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tempFile.Close(); err != nil {
		return &UnavailableError{Err: err}
	}

	// Atomic rename to final location
	if err := os.Rename(tempName, f.filePath); err != nil {
		return &UnavailableError{Err: err}
	}

	// Set secure file permissions (0600 = rw-------)
	if err := os.Chmod(f.filePath, 0600); err != nil {
		return &UnavailableError{Err: err}
	}

	return nil
}
