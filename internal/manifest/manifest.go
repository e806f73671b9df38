// Package manifest records what went into an image. A manifest file is
// written into the staging root just before ISO assembly, so the image
// itself carries the integrity data needed to audit it decades later: one
// BLAKE3 digest per staged file.
package manifest

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
)

// FileName is the manifest's name inside the staging root and the image.
const FileName = "MANIFEST.json"

// Entry describes one staged file.
type Entry struct {
	// Path is relative to the staging root, slash-separated.
	Path string `json:"path"`
	Size int64  `json:"size"`
	// BLAKE3 is the hex-encoded digest of the file contents.
	BLAKE3 string `json:"blake3"`
}

// Manifest lists every file staged for an image build.
type Manifest struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	VolumeID  string    `json:"volume_id"`
	Entries   []Entry   `json:"entries"`
}

// Build walks the staging root and hashes every regular file beneath it.
// Entries come back sorted by path. An existing manifest file at the root is
// excluded so rebuilding is idempotent.
func Build(root, runID, volumeID string) (*Manifest, error) {
	m := &Manifest{
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
		VolumeID:  volumeID,
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == FileName {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		digest, err := HashFile(path)
		if err != nil {
			return err
		}
		m.Entries = append(m.Entries, Entry{Path: rel, Size: info.Size(), BLAKE3: digest})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan staging tree: %w", err)
	}
	return m, nil
}

// Write stores the manifest as FileName inside root.
func (m *Manifest) Write(root string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(filepath.Join(root, FileName), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Load reads a manifest from path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes manifest bytes.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// Lookup returns the entry for a slash-separated relative path.
func (m *Manifest) Lookup(path string) (Entry, bool) {
	for _, entry := range m.Entries {
		if entry.Path == path {
			return entry, true
		}
	}
	return Entry{}, false
}

// HashFile computes the hex-encoded BLAKE3 digest of the file at path.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return HashReader(file)
}

// HashReader computes the hex-encoded BLAKE3 digest of everything read from
// r.
func HashReader(r io.Reader) (string, error) {
	hasher := blake3.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("hash contents: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
