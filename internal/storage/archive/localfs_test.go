package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalFS_ImplementsStorage(t *testing.T) {
	var _ Storage = (*LocalFS)(nil)
}

func TestLocalFS_WriteRead(t *testing.T) {
	store, err := NewLocalFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}

	ctx := context.Background()
	data := []byte(`{"batch_id":1}`)

	if err := store.Write(ctx, ReportPath(1), data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := store.Read(ctx, ReportPath(1))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("expected %s, got %s", data, got)
	}

	// overwrite replaces the previous snapshot
	if err := store.Write(ctx, ReportPath(1), []byte(`{"batch_id":1,"v":2}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ = store.Read(ctx, ReportPath(1))
	if string(got) != `{"batch_id":1,"v":2}` {
		t.Errorf("expected overwritten data, got %s", got)
	}
}

func TestLocalFS_ReadMissing(t *testing.T) {
	store, _ := NewLocalFS(t.TempDir())
	_, err := store.Read(context.Background(), ReportPath(9))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalFS_ListSkipsTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewLocalFS(dir)
	ctx := context.Background()

	store.Write(ctx, ReportPath(1), []byte("a"))
	store.Write(ctx, ReportPath(2), []byte("b"))
	os.WriteFile(filepath.Join(dir, "reports", ".tmp-123"), []byte("partial"), 0644)

	paths, err := store.List(ctx, "reports")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %v", paths)
	}
	if paths[0] != "reports/batch-1.json" {
		t.Errorf("expected slash-separated relative path, got %s", paths[0])
	}

	empty, err := store.List(ctx, "nothing-here")
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty list, got %v, %v", empty, err)
	}
}

func TestLocalFS_ExistsAndDelete(t *testing.T) {
	store, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	store.Write(ctx, "x.json", []byte("{}"))
	if ok, _ := store.Exists(ctx, "x.json"); !ok {
		t.Error("expected file to exist")
	}
	if err := store.Delete(ctx, "x.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := store.Exists(ctx, "x.json"); ok {
		t.Error("expected file to be gone")
	}
}

func TestLocalFS_RejectsEscapes(t *testing.T) {
	store, _ := NewLocalFS(t.TempDir())
	if err := store.Write(context.Background(), "../outside.json", []byte("x")); err == nil {
		t.Error("expected path escaping the base directory to be rejected")
	}
}

func TestNewLocalFS_RequiresPath(t *testing.T) {
	if _, err := NewLocalFS(""); err == nil {
		t.Error("expected error for empty base path")
	}
}
