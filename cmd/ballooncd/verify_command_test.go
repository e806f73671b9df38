package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"

	"ballooncd/internal/manifest"
	"ballooncd/internal/testsupport"
)

func writeFixtureFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeFixtureGzip(t *testing.T, path string, content []byte) {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	writeFixtureFile(t, path, buf.Bytes())
}

func sealFixtureManifest(t *testing.T, staging, runID, volumeID string) {
	t.Helper()
	man, err := manifest.Build(staging, runID, volumeID)
	if err != nil {
		t.Fatalf("build manifest: %v", err)
	}
	if err := man.Write(staging); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func TestVerifyCommandCleanImage(t *testing.T) {
	env := setupCLITestEnv(t)
	seedCatalog(t, env.catalogPath)

	staging := t.TempDir()
	photo := []byte("holiday snapshots")
	writeFixtureFile(t, filepath.Join(staging, "photo.jpg"), photo)
	writeFixtureGzip(t, filepath.Join(staging, "photo.jpg.gz"), photo)
	sealFixtureManifest(t, staging, seededRunOne, "HOLIDAY_2024")

	image := filepath.Join(env.outDir, "holiday.iso")
	testsupport.BuildISO(t, staging, image, "HOLIDAY_2024")

	out, _, err := runCLI(t, env.configPath, "verify", image)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	requireContains(t, out, "Image: "+image)
	requireContains(t, out, "Label: HOLIDAY_2024")
	requireContains(t, out, "Run ID: "+seededRunOne)
	requireContains(t, out, "Checked 2 files: 2 ok, 0 failed, 0 deep-skipped")
	requireContains(t, out, "Catalog: run "+shortID(seededRunOne)+" recorded completed")
	requireContains(t, out, "Verification passed")
}

func TestVerifyCommandDeep(t *testing.T) {
	env := setupCLITestEnv(t)

	staging := t.TempDir()
	photo := []byte("holiday snapshots")
	writeFixtureFile(t, filepath.Join(staging, "photo.jpg"), photo)
	writeFixtureGzip(t, filepath.Join(staging, "photo.jpg.gz"), photo)
	// lzip has no in-process reader, so the deep pass must skip it.
	writeFixtureFile(t, filepath.Join(staging, "photo.jpg.lz"), []byte("LZIP-ish"))
	sealFixtureManifest(t, staging, "run-deep-01", "DEEP_DISC")

	image := filepath.Join(env.outDir, "deep.iso")
	testsupport.BuildISO(t, staging, image, "DEEP_DISC")

	out, _, err := runCLI(t, env.configPath, "verify", "--deep", image)
	if err != nil {
		t.Fatalf("verify --deep: %v", err)
	}
	requireContains(t, out, "Checked 3 files: 2 ok, 0 failed, 1 deep-skipped")
	requireContains(t, out, "Verification passed")
}

func TestVerifyCommandDetectsCorruption(t *testing.T) {
	env := setupCLITestEnv(t)

	staging := t.TempDir()
	writeFixtureFile(t, filepath.Join(staging, "photo.jpg"), []byte("0123456789"))
	sealFixtureManifest(t, staging, "run-bad-01", "BAD_DISC")
	// Same length, different bytes, after the manifest was sealed.
	writeFixtureFile(t, filepath.Join(staging, "photo.jpg"), []byte("0123456780"))

	image := filepath.Join(env.outDir, "bad.iso")
	testsupport.BuildISO(t, staging, image, "BAD_DISC")

	out, _, err := runCLI(t, env.configPath, "verify", image)
	if err == nil {
		t.Fatal("expected verification to fail")
	}
	requireContains(t, err.Error(), "verification failed")
	requireContains(t, out, "photo.jpg\t")
	requireContains(t, out, "mismatch")
	requireContains(t, out, "Checked 1 files: 0 ok, 1 failed, 0 deep-skipped")
}

func TestVerifyCommandUnrecordedRun(t *testing.T) {
	env := setupCLITestEnv(t)
	seedCatalog(t, env.catalogPath)

	staging := t.TempDir()
	writeFixtureFile(t, filepath.Join(staging, "photo.jpg"), []byte("fresh burn"))
	sealFixtureManifest(t, staging, "99999999-dddd-4eee-8fff-000000000009", "LOOSE_DISC")

	image := filepath.Join(env.outDir, "loose.iso")
	testsupport.BuildISO(t, staging, image, "LOOSE_DISC")

	out, _, err := runCLI(t, env.configPath, "verify", image)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	requireContains(t, out, "Catalog: the image's run is not recorded here")
	requireContains(t, out, "Verification passed")
}

func TestVerifyCommandMissingImage(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env.configPath, "verify", filepath.Join(env.outDir, "nope.iso"))
	if err == nil {
		t.Fatal("expected an error for a missing image")
	}
}
