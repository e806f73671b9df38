package par2_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"ballooncd/internal/services/par2"
)

type stubExecutor struct {
	err      error
	calls    int
	dirs     []string
	binaries []string
	args     [][]string
}

func (s *stubExecutor) Run(ctx context.Context, dir, binary string, args []string, onLine func(string)) error {
	s.calls++
	s.dirs = append(s.dirs, dir)
	s.binaries = append(s.binaries, binary)
	s.args = append(s.args, append([]string(nil), args...))
	if onLine != nil {
		onLine("par2 output line")
	}
	return s.err
}

func TestCreateFileArgs(t *testing.T) {
	tmp := t.TempDir()
	source := filepath.Join(tmp, "photo.jpg")
	if err := os.WriteFile(source, []byte("image"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	exec := &stubExecutor{}
	client := par2.NewCLI(par2.WithExecutor(exec))

	parityPath, err := client.Create(context.Background(), source)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if parityPath != source+".par2" {
		t.Fatalf("unexpected parity path %q", parityPath)
	}
	if exec.calls != 1 {
		t.Fatalf("expected 1 invocation, got %d", exec.calls)
	}
	if exec.dirs[0] != tmp {
		t.Fatalf("expected working directory %q, got %q", tmp, exec.dirs[0])
	}
	if exec.binaries[0] != "par2" {
		t.Fatalf("expected par2 binary, got %q", exec.binaries[0])
	}
	want := []string{"c", "-n1", "-r20", source + ".par2", "photo.jpg"}
	if !reflect.DeepEqual(exec.args[0], want) {
		t.Fatalf("args = %v, want %v", exec.args[0], want)
	}
}

func TestCreateDirectoryArgs(t *testing.T) {
	tmp := t.TempDir()
	source := filepath.Join(tmp, "floppies")
	if err := os.MkdirAll(filepath.Join(source, "disk2"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, rel := range []string{"disk1.img", filepath.Join("disk2", "files.dat")} {
		if err := os.WriteFile(filepath.Join(source, rel), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}

	exec := &stubExecutor{}
	client := par2.NewCLI(par2.WithExecutor(exec))

	if _, err := client.Create(context.Background(), source); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	want := []string{
		"c", "-n1", "-r20", source + ".par2",
		filepath.Join("floppies", "disk1.img"),
		filepath.Join("floppies", "disk2", "files.dat"),
	}
	if !reflect.DeepEqual(exec.args[0], want) {
		t.Fatalf("args = %v, want %v", exec.args[0], want)
	}
	if exec.dirs[0] != tmp {
		t.Fatalf("expected working directory %q, got %q", tmp, exec.dirs[0])
	}
}

func TestCreateOptionOverrides(t *testing.T) {
	tmp := t.TempDir()
	source := filepath.Join(tmp, "a.bin")
	if err := os.WriteFile(source, []byte("x"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	exec := &stubExecutor{}
	client := par2.NewCLI(
		par2.WithExecutor(exec),
		par2.WithBinary("/opt/par2"),
		par2.WithRedundancy(35),
		par2.WithRecoveryFiles(3),
	)

	if _, err := client.Create(context.Background(), source); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if exec.binaries[0] != "/opt/par2" {
		t.Fatalf("binary override not applied: %q", exec.binaries[0])
	}
	want := []string{"c", "-n3", "-r35", source + ".par2", "a.bin"}
	if !reflect.DeepEqual(exec.args[0], want) {
		t.Fatalf("args = %v, want %v", exec.args[0], want)
	}
}

func TestCreateMissingSource(t *testing.T) {
	client := par2.NewCLI(par2.WithExecutor(&stubExecutor{}))
	if _, err := client.Create(context.Background(), filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestCreateEmptyDirectory(t *testing.T) {
	tmp := t.TempDir()
	source := filepath.Join(tmp, "empty")
	if err := os.Mkdir(source, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	client := par2.NewCLI(par2.WithExecutor(&stubExecutor{}))
	if _, err := client.Create(context.Background(), source); err == nil {
		t.Fatal("expected error for directory with no files")
	}
}

func TestCreateExecutorError(t *testing.T) {
	tmp := t.TempDir()
	source := filepath.Join(tmp, "a.bin")
	if err := os.WriteFile(source, []byte("x"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	client := par2.NewCLI(par2.WithExecutor(&stubExecutor{err: errors.New("exit status 2")}))
	if _, err := client.Create(context.Background(), source); err == nil {
		t.Fatal("expected executor error to propagate")
	}
}
