package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ballooncd/internal/config"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Parity.RedundancyPercent != 20 {
		t.Fatalf("unexpected redundancy: %d", cfg.Parity.RedundancyPercent)
	}
	if cfg.Parity.RecoveryFiles != 1 {
		t.Fatalf("unexpected recovery files: %d", cfg.Parity.RecoveryFiles)
	}
	if cfg.ISO.ApplicationID != "CD Ballooner" {
		t.Fatalf("unexpected application id: %q", cfg.ISO.ApplicationID)
	}
	if cfg.ISO.SystemID != "LINUX" {
		t.Fatalf("unexpected system id: %q", cfg.ISO.SystemID)
	}
	if cfg.ECC.Method != "RS02" || cfg.ECC.Medium != "CD" {
		t.Fatalf("unexpected ecc defaults: %q %q", cfg.ECC.Method, cfg.ECC.Medium)
	}
	if cfg.ECC.Threads != 0 {
		t.Fatalf("unexpected ecc threads: %d", cfg.ECC.Threads)
	}
	if !cfg.Catalog.Enabled {
		t.Fatal("expected catalog enabled by default")
	}
	wantCatalog := filepath.Join(tempHome, ".local", "share", "ballooncd", "catalog.db")
	if cfg.Catalog.Path != wantCatalog {
		t.Fatalf("unexpected catalog path: got %q want %q", cfg.Catalog.Path, wantCatalog)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "ballooncd.toml")

	payload := `
[tools]
genisoimage = "mkisofs"
rar = "/opt/rar/rar"

[parity]
redundancy_percent = 35
recovery_files = 2

[ecc]
method = "rs03"
medium = "dvd"
threads = 4

[catalog]
enabled = false

[logging]
format = "JSON"
`
	if err := os.WriteFile(configPath, []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q %v", resolved, exists)
	}

	if cfg.Binary("genisoimage") != "mkisofs" {
		t.Fatalf("override not applied: %q", cfg.Binary("genisoimage"))
	}
	if cfg.Binary("rar") != "/opt/rar/rar" {
		t.Fatalf("override not applied: %q", cfg.Binary("rar"))
	}
	if cfg.Binary("zip") != "zip" {
		t.Fatalf("expected passthrough for unconfigured tool, got %q", cfg.Binary("zip"))
	}
	if cfg.Parity.RedundancyPercent != 35 || cfg.Parity.RecoveryFiles != 2 {
		t.Fatalf("parity settings not applied: %+v", cfg.Parity)
	}
	if cfg.ECC.Method != "RS03" || cfg.ECC.Medium != "DVD" {
		t.Fatalf("ecc settings not uppercased: %+v", cfg.ECC)
	}
	if cfg.ECC.Threads != 4 {
		t.Fatalf("ecc threads not applied: %d", cfg.ECC.Threads)
	}
	if cfg.Catalog.Enabled {
		t.Fatal("expected catalog disabled")
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("log format not normalized: %q", cfg.Logging.Format)
	}
}

func TestLoadMissingExplicitPathUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")
	cfg, resolved, exists, err := config.Load(missing)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected missing config to report exists=false")
	}
	if resolved != missing {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Parity.RedundancyPercent != 20 {
		t.Fatalf("expected defaults, got %+v", cfg.Parity)
	}
}

func TestLoadRejectsUnknownTool(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "ballooncd.toml")
	payload := "[tools]\nflorp = \"/usr/bin/florp\"\n"
	if err := os.WriteFile(configPath, []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := config.Load(configPath)
	if err == nil {
		t.Fatal("expected error for unknown tool name")
	}
	if !strings.Contains(err.Error(), "florp") {
		t.Fatalf("expected offending name in error, got %v", err)
	}
}

func TestLoadRejectsBadParity(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "ballooncd.toml")
	payload := "[parity]\nredundancy_percent = 150\n"
	if err := os.WriteFile(configPath, []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for out-of-range redundancy")
	}
}

func TestLoadRejectsBadECCMethod(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "ballooncd.toml")
	payload := "[ecc]\nmethod = \"RS99\"\n"
	if err := os.WriteFile(configPath, []byte(payload), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for unknown ecc method")
	}
}

func TestExternalToolsOrderAndOverrides(t *testing.T) {
	cfg := config.Default()
	cfg.Tools = map[string]string{"7z": "/usr/local/bin/7zz"}

	tools := cfg.ExternalTools()
	if len(tools) != 15 {
		t.Fatalf("expected 15 tools, got %d", len(tools))
	}
	if tools[0].Name != "zip" || tools[1].Name != "tar" {
		t.Fatalf("unexpected leading tools: %+v", tools[:2])
	}
	last := tools[len(tools)-1]
	if last.Name != "dvdisaster" {
		t.Fatalf("expected dvdisaster last, got %+v", last)
	}
	for _, tool := range tools {
		if tool.Name == "7z" && tool.Binary != "/usr/local/bin/7zz" {
			t.Fatalf("override not reflected: %+v", tool)
		}
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	for _, fragment := range []string{"[parity]", "[iso]", "[ecc]", "[catalog]", "[logging]", "redundancy_percent"} {
		if !strings.Contains(string(data), fragment) {
			t.Fatalf("sample missing %q", fragment)
		}
	}
}

func TestExpandPathTilde(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	got, err := config.ExpandPath("~/somewhere/file.db")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	if got != filepath.Join(tempHome, "somewhere", "file.db") {
		t.Fatalf("unexpected expansion: %q", got)
	}
}
