package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore keeps uploads on the local filesystem under a base directory.
// References are paths relative to the base dir, prefixed with "file://" so
// they are distinguishable from other backends in the database.
type DiskStore struct {
	base string
}

// NewDiskStore creates the base directory if needed and returns a store
// rooted there.
func NewDiskStore(base string) (*DiskStore, error) {
	if base == "" {
		base = "uploads"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{base: base}, nil
}

const refPrefix = "file://"

// Store writes the content to base/key, creating parent directories as
// needed.  The file is written to a temporary name and renamed into place
// so a crash mid-write never leaves a half file under the final key.
func (s *DiskStore) Store(ctx context.Context, key string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key = filepath.ToSlash(filepath.Clean(key))
	if key == "" || strings.HasPrefix(key, "..") || filepath.IsAbs(key) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	dst := filepath.Join(s.base, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("finalize blob: %w", err)
	}
	return refPrefix + key, nil
}

// Delete removes the blob for a reference produced by Store.  Unknown or
// already-deleted references are ignored.
func (s *DiskStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := strings.TrimPrefix(ref, refPrefix)
	key = filepath.ToSlash(filepath.Clean(key))
	if key == "" || strings.HasPrefix(key, "..") || filepath.IsAbs(key) {
		return fmt.Errorf("invalid storage reference %q", ref)
	}
	err := os.Remove(filepath.Join(s.base, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}
