package preflight

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ballooncd/internal/config"
	"ballooncd/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace_OK(t *testing.T) {
	orig := statfs
	defer func() { statfs = orig }()
	statfs = func(string) (uint64, uint64, error) { return 1 << 40, 1 << 35, nil }

	result := CheckFreeSpace("Free space", "/anywhere", 1<<30)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "free on /anywhere") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckFreeSpace_Insufficient(t *testing.T) {
	orig := statfs
	defer func() { statfs = orig }()
	statfs = func(string) (uint64, uint64, error) { return 1 << 40, 1 << 20, nil }

	result := CheckFreeSpace("Free space", "/anywhere", 1<<30)
	if result.Passed {
		t.Fatal("expected failure when free space is below the estimate")
	}
	if !strings.Contains(result.Detail, "estimated need") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckFreeSpace_StatError(t *testing.T) {
	orig := statfs
	defer func() { statfs = orig }()
	statfs = func(string) (uint64, uint64, error) { return 0, 0, errors.New("boom") }

	result := CheckFreeSpace("Free space", "/anywhere", 0)
	if result.Passed {
		t.Fatal("expected failure when statfs errors")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckExternalTools_HonorsOverrides(t *testing.T) {
	cfg := config.Default()
	cfg.Tools = map[string]string{"7z": "/definitely/missing/7zz"}

	results := CheckExternalTools(&cfg, true)
	if len(results) != len(cfg.ExternalTools()) {
		t.Fatalf("expected %d results, got %d", len(cfg.ExternalTools()), len(results))
	}
	found := false
	for _, status := range results {
		if status.Name == "7z" {
			found = true
			if status.Command != "/definitely/missing/7zz" {
				t.Fatalf("expected override command, got %q", status.Command)
			}
			if status.Available {
				t.Fatal("expected overridden 7z to be unavailable")
			}
		}
		if status.Name == "par2" && status.Optional {
			t.Fatal("par2 must be required when parity is enabled")
		}
	}
	if !found {
		t.Fatal("expected a result for 7z")
	}
}

func TestCheckExternalTools_ParityDisabled(t *testing.T) {
	cfg := config.Default()
	for _, status := range CheckExternalTools(&cfg, false) {
		if status.Name == "par2" && !status.Optional {
			t.Fatal("expected par2 to be optional when parity is disabled")
		}
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(nil, t.TempDir(), 0, true)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()

	results := RunAll(&cfg, dir, 0, true)
	want := 2 + len(cfg.ExternalTools())
	if len(results) != want {
		t.Fatalf("expected %d results, got %d", want, len(results))
	}
	if !results[0].Passed {
		t.Errorf("output directory check failed: %s", results[0].Detail)
	}
	if !results[1].Passed {
		t.Errorf("free space check failed: %s", results[1].Detail)
	}
}

func TestRunAll_StubbedTools(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	for _, result := range RunAll(cfg, testsupport.BaseDir(cfg), 0, true) {
		if !result.Passed {
			t.Errorf("%s failed: %s", result.Name, result.Detail)
		}
	}
}
