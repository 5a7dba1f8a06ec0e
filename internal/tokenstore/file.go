package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFileName is the dotfile, relative to the user's home directory, holding the cached token.
const DefaultFileName = ".gitbruv_token"

// FileStore provides atomic file-based token storage with secure permissions.
// Writes use temp file + rename so the cache is never partially written.
type FileStore struct {
	filePath string
}

// Compile-time check to ensure FileStore implements TokenStore
var _ TokenStore = (*FileStore)(nil)

// NewFileStore creates a FileStore for the given path. No I/O is performed.
func NewFileStore(filePath string) (*FileStore, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	return &FileStore{
		filePath: filePath,
	}, nil
}

// Path returns the location of the token file.
func (f *FileStore) Path() string {
	return f.filePath
}

func (f *FileStore) String() string {
	return "file " + f.filePath
}

// Read returns the stored token after trimming whitespace. A missing or blank file
// yields ErrNotFound.
func (f *FileStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	info, err := os.Stat(f.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("token path %s is a directory", f.filePath)
	}
	// Files written by hand may be group/world readable; still usable, but worth a nudge
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		slog.WarnContext(ctx, "token file has insecure permissions",
			"path", f.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return "", err
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNotFound
	}
	return token, nil
}

// Write atomically saves the trimmed token using temp file + rename.
// Parent directories are created with 0700 and the file ends up 0600.
func (f *FileStore) Write(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("refusing to write empty token")
	}

	dir := filepath.Dir(f.filePath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	// Temp file in the same directory keeps the rename atomic
	tempFile, err := os.CreateTemp(dir, filepath.Base(f.filePath)+".*.tmp")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()
	// Cleanup deferred for all exit paths
	defer func() { _ = os.Remove(tempName) }()
	defer func() { _ = tempFile.Close() }()

	if _, err := tempFile.WriteString(token); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}

	if err := os.Rename(tempName, f.filePath); err != nil {
		return err
	}

	// 0600 = rw-------
	return os.Chmod(f.filePath, 0o600)
}
