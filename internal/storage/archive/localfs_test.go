package archive

import (
	"context"
	"errors"
	"testing"
)

func TestLocalFS_ImplementsStore(t *testing.T) {
	var _ Store = (*LocalFS)(nil)
}

func TestLocalFS_PutGet(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}

	ctx := context.Background()
	data := []byte(`{"run_id":"a"}`)

	if err := fs.Put(ctx, "runs/a/report.json", data, "application/json"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := fs.Get(ctx, "runs/a/report.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}
}

func TestLocalFS_GetMissing(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())

	_, err := fs.Get(context.Background(), "runs/missing/report.json")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing error = %v, want ErrNotFound", err)
	}
}

func TestLocalFS_Exists(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	exists, _ := fs.Exists(ctx, "nonexistent.json")
	if exists {
		t.Error("expected false for nonexistent file")
	}

	fs.Put(ctx, "exists.json", []byte("{}"), "")
	exists, _ = fs.Exists(ctx, "exists.json")
	if !exists {
		t.Error("expected true for existing file")
	}
}

func TestLocalFS_List(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	fs.Put(ctx, "runs/a/report.json", []byte("a"), "")
	fs.Put(ctx, "runs/b/report.json", []byte("b"), "")
	fs.Put(ctx, "other/c.json", []byte("c"), "")

	keys, err := fs.List(ctx, "runs")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("expected 2 keys, got %v", keys)
	}

	keys, err = fs.List(ctx, "absent")
	if err != nil || len(keys) != 0 {
		t.Errorf("List absent = %v, %v; want empty", keys, err)
	}
}

func TestLocalFS_RejectsEscapingKeys(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())

	if err := fs.Put(context.Background(), "../outside.json", []byte("x"), ""); err == nil {
		t.Error("expected error for key outside the archive root")
	}
}

func TestOpen(t *testing.T) {
	s, err := Open(BackendNone, "", S3Config{})
	if err != nil || s != nil {
		t.Errorf("Open(none) = %v, %v; want nil, nil", s, err)
	}

	s, err = Open(BackendLocalFS, t.TempDir(), S3Config{})
	if err != nil {
		t.Fatalf("Open(localfs): %v", err)
	}
	if _, ok := s.(*LocalFS); !ok {
		t.Errorf("Open(localfs) = %T, want *LocalFS", s)
	}

	if _, err := Open("ftp", "", S3Config{}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := Open(BackendS3, "", S3Config{}); err == nil {
		t.Error("expected error for s3 without bucket")
	}
}
