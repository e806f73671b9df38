package catalog

import (
	"path/filepath"
	"strings"
	"time"

	"ballooncd/internal/formats"
	"ballooncd/internal/manifest"
)

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Artifact kinds.
const (
	KindInput      = "input"
	KindArchive    = "archive"
	KindCompressed = "compressed"
	KindParity     = "parity"
	KindManifest   = "manifest"
)

// Run records one image build: what was requested, what came out, and
// how it ended.
type Run struct {
	ID            string
	VolumeID      string
	OutputPath    string
	Inputs        []string
	Status        string
	Error         string
	ArtifactCount int
	TotalBytes    int64
	ISOBytes      int64
	Par2          bool
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Artifact records one file placed on the image, with the digest the
// manifest carries for it.
type Artifact struct {
	RunID  string
	Path   string
	Kind   string
	Size   int64
	BLAKE3 string
}

var (
	archiveExts    = extensionSet(formats.Archivers, nil)
	compressedExts = extensionSet(formats.Compressors, formats.TarRenames)
)

func extensionSet(tools []formats.Tool, renames []formats.Rename) map[string]struct{} {
	set := make(map[string]struct{}, len(tools)+len(renames))
	for _, t := range tools {
		set[t.Ext] = struct{}{}
	}
	for _, r := range renames {
		set[r.To] = struct{}{}
	}
	return set
}

// Classify derives an artifact kind from its file name. Compound names
// like photo.tar.gz classify by their outermost extension.
func Classify(name string) string {
	base := filepath.Base(name)
	if base == manifest.FileName {
		return KindManifest
	}
	ext := strings.ToLower(filepath.Ext(base))
	if ext == formats.Par2Ext {
		return KindParity
	}
	if _, ok := compressedExts[ext]; ok {
		return KindCompressed
	}
	if _, ok := archiveExts[ext]; ok {
		return KindArchive
	}
	return KindInput
}
