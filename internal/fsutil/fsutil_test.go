package fsutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestCopyFilePreservesContentAndMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	if err := os.WriteFile(src, []byte("payload"), 0o750); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "payload" {
		t.Fatalf("content mismatch: got %q", got)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	// Umask may clear group/other bits; the owner bits must survive.
	if info.Mode().Perm()&0o700 != 0o700 {
		t.Fatalf("mode = %o, want owner rwx preserved", info.Mode().Perm())
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFile(filepath.Join(dir, "absent"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestCopyTree(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tree")
	for _, sub := range []string{"a", "b/c"} {
		if err := os.MkdirAll(filepath.Join(src, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	files := map[string]string{
		"root.txt":    "root",
		"a/one.txt":   "one",
		"b/c/two.txt": "two",
	}
	for rel, content := range files {
		if err := os.WriteFile(filepath.Join(src, rel), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	dst := filepath.Join(dir, "copy")
	if err := CopyTree(src, dst); err != nil {
		t.Fatal(err)
	}

	for rel, content := range files {
		got, err := os.ReadFile(filepath.Join(dst, rel))
		if err != nil {
			t.Fatalf("read %s: %v", rel, err)
		}
		if string(got) != content {
			t.Fatalf("%s content = %q, want %q", rel, got, content)
		}
	}
}

func TestCopyTreeRejectsExistingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tree")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "copy")
	if err := os.MkdirAll(dst, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := CopyTree(src, dst); err == nil {
		t.Fatal("expected error for pre-existing destination")
	}
}

func TestCopyAnyBranchesOnType(t *testing.T) {
	dir := t.TempDir()

	file := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyAny(file, filepath.Join(dir, "f.copy")); err != nil {
		t.Fatal(err)
	}
	if !Exists(filepath.Join(dir, "f.copy")) {
		t.Fatal("file copy missing")
	}

	tree := filepath.Join(dir, "d")
	if err := os.MkdirAll(filepath.Join(tree, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tree, "nested", "n.txt"), []byte("n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyAny(tree, filepath.Join(dir, "d.copy")); err != nil {
		t.Fatal(err)
	}
	if !Exists(filepath.Join(dir, "d.copy", "nested", "n.txt")) {
		t.Fatal("tree copy missing nested file")
	}
}

func TestTreeFilesRelativeToBase(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "input")
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, rel := range []string{"top.txt", "sub/deep.txt"} {
		if err := os.WriteFile(filepath.Join(root, rel), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := TreeFiles(root, dir)
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(files)
	want := []string{
		filepath.Join("input", "sub", "deep.txt"),
		filepath.Join("input", "top.txt"),
	}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("files = %v, want %v", files, want)
		}
	}
}

func TestDirSize(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a"), make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b"), make([]byte, 23), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := DirSize(dir); got != 123 {
		t.Fatalf("size = %d, want 123", got)
	}
}
