package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestList_OnlyMarkdownSorted(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("b.md", []byte("b"))
	_ = s.Write("sub/a.md", []byte("a"))
	_ = s.Write("attachments/pic.png", []byte{0x89})
	paths, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 2 || paths[0] != "b.md" || paths[1] != "sub/a.md" {
		t.Errorf("paths = %v", paths)
	}
}

func TestExists(t *testing.T) {
	s := tempVault(t)
	ok, err := s.Exists("missing.md")
	if err != nil || ok {
		t.Errorf("Exists(missing) = %v, %v", ok, err)
	}
	_ = s.Write("here.md", []byte("x"))
	ok, err = s.Exists("here.md")
	if err != nil || !ok {
		t.Errorf("Exists(here) = %v, %v", ok, err)
	}
}

func TestCopy(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("orig.md", []byte("original"))
	if err := s.Copy("orig.md", "backups/orig.md.bak"); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	got, err := s.Read("backups/orig.md.bak")
	if err != nil {
		t.Fatalf("Read copy: %v", err)
	}
	if string(got) != "original" {
		t.Errorf("copy content = %q", got)
	}
}

func TestSafePathRejectsTraversal(t *testing.T) {
	s := tempVault(t)
	if _, err := s.Read("../outside.md"); err == nil {
		t.Error("expected traversal to be rejected")
	}
	abs := filepath.Join(string(os.PathSeparator), "etc", "passwd")
	if _, err := s.Read(abs); err == nil {
		t.Error("expected absolute path to be rejected")
	}
}
