package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jobfit-backend/internal/shared/storage/object"
)

func TestPutOpenDelete(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())

	obj, err := store.Put(ctx, "user-1", "resume.docx", "", bytes.NewReader([]byte("PK-docx")))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if obj.SizeBytes != 7 || obj.MimeType != object.DocxMIME {
		t.Fatalf("unexpected object %+v", obj)
	}

	rc, err := store.Open(ctx, obj.Key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "PK-docx" {
		t.Fatalf("unexpected content %q", data)
	}

	if err := store.Delete(ctx, obj.Key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, obj.Key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, obj.Key); err != nil {
		t.Fatalf("second Delete should be a no-op: %v", err)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Open(context.Background(), "../../etc/passwd"); err == nil {
		t.Fatalf("expected invalid key error")
	}
}

func TestPutLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	store := New(root)
	obj, err := store.Put(context.Background(), "", "cv.docx", "", bytes.NewReader([]byte("x")))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(obj.Key, "generated/anonymous/") {
		t.Fatalf("unexpected key %q", obj.Key)
	}
	entries, err := os.ReadDir(filepath.Join(root, "generated", "anonymous"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || strings.HasPrefix(entries[0].Name(), ".upload-") {
		t.Fatalf("unexpected directory contents %v", entries)
	}
}

func TestDeleteAllFallsBackToSingleDeletes(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())
	a, _ := store.Put(ctx, "u", "a.docx", "", bytes.NewReader([]byte("a")))
	b, _ := store.Put(ctx, "u", "b.docx", "", bytes.NewReader([]byte("b")))

	if err := object.DeleteAll(ctx, store, []string{a.Key, "", b.Key}); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	for _, k := range []string{a.Key, b.Key} {
		if _, err := store.Open(ctx, k); !errors.Is(err, object.ErrNotFound) {
			t.Fatalf("expected %s removed, got %v", k, err)
		}
	}
}
