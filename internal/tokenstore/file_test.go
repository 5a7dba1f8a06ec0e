package tokenstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRead(t *testing.T) {
	tests := []struct {
		name    string
		content *string
		want    string
		wantErr error
	}{
		{name: "missing file", content: nil, wantErr: ErrNotFound},
		{name: "blank file", content: ptr("  \n\t"), wantErr: ErrNotFound},
		{name: "plain token", content: ptr("gho_abc"), want: "gho_abc"},
		{name: "surrounding whitespace", content: ptr("\n  gho_abc \r\n"), want: "gho_abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), DefaultFileName)
			if tt.content != nil {
				if err := os.WriteFile(path, []byte(*tt.content), 0o600); err != nil {
					t.Fatalf("seeding token file: %v", err)
				}
			}

			store, err := NewFileStore(path)
			if err != nil {
				t.Fatalf("NewFileStore: %v", err)
			}

			got, err := store.Read(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFileStoreReadToleratesLoosePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := os.WriteFile(path, []byte("gho_loose\n"), 0o644); err != nil {
		t.Fatalf("seeding token file: %v", err)
	}

	store, _ := NewFileStore(path)
	got, err := store.Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "gho_loose" {
		t.Errorf("expected gho_loose, got %q", got)
	}
}

func TestFileStoreWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", DefaultFileName)
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	if err := store.Write(ctx, "  tok_999\n"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading token file: %v", err)
	}
	if string(data) != "tok_999" {
		t.Errorf("expected file content %q, got %q", "tok_999", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected 0600, got %04o", perm)
	}

	got, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "tok_999" {
		t.Errorf("expected tok_999, got %q", got)
	}

	// Overwrite leaves no temp files behind
	if err := store.Write(ctx, "tok_1000"); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the token file, found %d entries", len(entries))
	}
}

func TestFileStoreWriteRejectsEmptyToken(t *testing.T) {
	store, _ := NewFileStore(filepath.Join(t.TempDir(), DefaultFileName))
	if err := store.Write(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestFileStoreWriteFailure(t *testing.T) {
	dir := t.TempDir()
	// A regular file where the parent directory should be
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatalf("seeding blocker: %v", err)
	}

	store, _ := NewFileStore(filepath.Join(blocker, DefaultFileName))
	if err := store.Write(context.Background(), "tok"); err == nil {
		t.Fatal("expected write error")
	}
}

func ptr(s string) *string { return &s }
