package mediastore

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFSStore_SaveOpenRemove(t *testing.T) {
	store := NewFSStore(t.TempDir())

	ref, err := store.Save("report.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasSuffix(ref, "_report.pdf") {
		t.Errorf("ref = %q", ref)
	}

	rc, err := store.Open(ref)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "%PDF-1.4" {
		t.Errorf("content = %q", data)
	}

	if err := store.Remove(ref); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(ref); !os.IsNotExist(err) {
		t.Error("file still on disk after Remove")
	}
	if err := store.Remove(ref); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove err = %v", err)
	}
}

func TestFSStore_DistinctRefsForSameName(t *testing.T) {
	store := NewFSStore(t.TempDir())

	a, err := store.Save("report.pdf", []byte("first"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := store.Save("report.pdf", []byte("second"))
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Errorf("refs collide: %q", a)
	}
}

func TestFSStore_SanitizesFileName(t *testing.T) {
	store := NewFSStore(t.TempDir())

	ref, err := store.Save("../../etc/pass wd?.pdf", []byte("doc"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	base := filepath.Base(ref)
	if strings.ContainsAny(base, "/? ") {
		t.Errorf("unsafe characters in %q", base)
	}
}

func TestFSStore_RejectsEmptyName(t *testing.T) {
	store := NewFSStore(t.TempDir())
	if _, err := store.Save("   ", []byte("doc")); !errors.Is(err, ErrMissingFileName) {
		t.Errorf("err = %v", err)
	}
}

func TestFSStore_RejectsEscapingRef(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(t.TempDir(), "victim.txt")
	if err := os.WriteFile(outside, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewFSStore(root)
	if err := store.Remove(outside); !errors.Is(err, ErrOutsideRoot) {
		t.Errorf("Remove err = %v", err)
	}
	if _, err := os.Stat(outside); err != nil {
		t.Error("file outside root was touched")
	}
}

func TestFSStore_RejectsOversized(t *testing.T) {
	store := NewFSStore(t.TempDir())
	if _, err := store.Save("big.pdf", make([]byte, MaxDocumentSize+1)); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v", err)
	}
}

func TestMemStore(t *testing.T) {
	store := NewMemStore()

	ref, err := store.Save("report.pdf", []byte("doc"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	rc, err := store.Open(ref)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	if string(data) != "doc" {
		t.Errorf("content = %q", data)
	}
	if err := store.Remove(ref); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(store.Refs()) != 0 {
		t.Errorf("refs = %v", store.Refs())
	}
}
