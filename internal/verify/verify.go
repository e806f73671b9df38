package verify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/filesystem"

	"ballooncd/internal/logging"
	"ballooncd/internal/manifest"
)

// Statuses for a verified manifest entry.
const (
	StatusOK       = "ok"
	StatusMismatch = "mismatch"
	StatusMissing  = "missing"
)

// Deep-check outcomes. Empty means deep checking was disabled or the
// file is not a derived artifact.
const (
	DeepOK      = "ok"
	DeepFailed  = "failed"
	DeepSkipped = "skipped"
)

// FileResult reports one manifest entry checked against the image.
type FileResult struct {
	Path   string
	Size   int64
	Status string
	Detail string
	Deep   string
}

// Report summarizes one verification pass over an image.
type Report struct {
	ImagePath string
	Label     string
	RunID     string
	VolumeID  string
	CreatedAt time.Time
	Files     []FileResult
	Extra     []string
}

// OK reports whether every manifest entry checked out.
func (r *Report) OK() bool {
	for _, f := range r.Files {
		if f.Status != StatusOK || f.Deep == DeepFailed {
			return false
		}
	}
	return true
}

// Counts tallies results for display.
func (r *Report) Counts() (ok, failed, skipped int) {
	for _, f := range r.Files {
		switch {
		case f.Status != StatusOK || f.Deep == DeepFailed:
			failed++
		case f.Deep == DeepSkipped:
			skipped++
		default:
			ok++
		}
	}
	return ok, failed, skipped
}

// Option configures the verifier.
type Option func(*Verifier)

// WithDeep enables decoding of artifacts with in-process readers.
func WithDeep(enabled bool) Option {
	return func(v *Verifier) {
		v.deep = enabled
	}
}

// WithLogger attaches a logger for per-file progress.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logging.NewComponentLogger(logger, "verify")
		}
	}
}

// Verifier checks images against their embedded manifests.
type Verifier struct {
	deep   bool
	logger *slog.Logger
}

// New constructs a Verifier.
func New(opts ...Option) *Verifier {
	v := &Verifier{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type imageEntry struct {
	path string
	size int64
}

// VerifyImage opens the image read-only, locates MANIFEST.json, and
// checks every listed file. Per-file failures land in the report; an
// error is returned only when the image itself cannot be inspected.
func (v *Verifier) VerifyImage(ctx context.Context, imagePath string) (*Report, error) {
	disk, err := diskfs.Open(imagePath, diskfs.WithOpenMode(diskfs.ReadOnly))
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", imagePath, err)
	}
	fs, err := disk.GetFilesystem(0)
	if err != nil {
		return nil, fmt.Errorf("read image filesystem: %w", err)
	}

	entries, err := walkImage(fs)
	if err != nil {
		return nil, err
	}

	manifestKey := normalizeComponent(manifest.FileName)
	img, ok := entries[manifestKey]
	if !ok {
		return nil, fmt.Errorf("image carries no %s", manifest.FileName)
	}
	data, err := readImageFile(fs, img.path)
	if err != nil {
		return nil, err
	}
	man, err := manifest.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse embedded manifest: %w", err)
	}

	report := &Report{
		ImagePath: imagePath,
		Label:     strings.TrimSpace(fs.Label()),
		RunID:     man.RunID,
		VolumeID:  man.VolumeID,
		CreatedAt: man.CreatedAt,
	}

	checked := map[string]bool{manifestKey: true}
	for _, entry := range man.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result := v.checkEntry(fs, entries, entry, checked)
		v.logger.DebugContext(ctx, "checked embedded file",
			logging.String("path", entry.Path),
			logging.String("status", result.Status))
		report.Files = append(report.Files, result)
	}

	for key, entry := range entries {
		if checked[key] {
			continue
		}
		report.Extra = append(report.Extra, strings.TrimPrefix(entry.path, "/"))
	}
	sort.Strings(report.Extra)
	return report, nil
}

func (v *Verifier) checkEntry(fs filesystem.FileSystem, entries map[string]imageEntry, entry manifest.Entry, checked map[string]bool) FileResult {
	result := FileResult{Path: entry.Path, Size: entry.Size}

	key := normalizePath(entry.Path)
	checked[key] = true
	img, ok := entries[key]
	if !ok {
		result.Status = StatusMissing
		result.Detail = "listed in manifest but absent from image"
		return result
	}
	if img.size != entry.Size {
		result.Status = StatusMismatch
		result.Detail = fmt.Sprintf("size %d does not match manifest %d", img.size, entry.Size)
		return result
	}

	file, err := fs.OpenFile(img.path, os.O_RDONLY)
	if err != nil {
		result.Status = StatusMissing
		result.Detail = fmt.Sprintf("open in image: %v", err)
		return result
	}
	digest, err := manifest.HashReader(file)
	if err != nil {
		result.Status = StatusMismatch
		result.Detail = fmt.Sprintf("read from image: %v", err)
		return result
	}
	if digest != entry.BLAKE3 {
		result.Status = StatusMismatch
		result.Detail = fmt.Sprintf("digest %s does not match manifest %s", shortDigest(digest), shortDigest(entry.BLAKE3))
		return result
	}
	result.Status = StatusOK

	if v.deep {
		file, err := fs.OpenFile(img.path, os.O_RDONLY)
		if err != nil {
			result.Deep = DeepFailed
			result.Detail = fmt.Sprintf("reopen in image: %v", err)
			return result
		}
		status, detail := deepCheck(entry.Path, file)
		result.Deep = status
		if result.Detail == "" {
			result.Detail = detail
		}
	}
	return result
}

func walkImage(fs filesystem.FileSystem) (map[string]imageEntry, error) {
	out := make(map[string]imageEntry)
	var walk func(raw, norm string) error
	walk = func(raw, norm string) error {
		infos, err := fs.ReadDir(raw)
		if err != nil {
			return fmt.Errorf("read image directory %s: %w", raw, err)
		}
		for _, info := range infos {
			name := info.Name()
			if name == "." || name == ".." {
				continue
			}
			childRaw := path.Join(raw, name)
			childNorm := normalizeComponent(name)
			if norm != "" {
				childNorm = norm + "/" + childNorm
			}
			if info.IsDir() {
				if err := walk(childRaw, childNorm); err != nil {
					return err
				}
				continue
			}
			out[childNorm] = imageEntry{path: childRaw, size: info.Size()}
		}
		return nil
	}
	if err := walk("/", ""); err != nil {
		return nil, err
	}
	return out, nil
}

func readImageFile(fs filesystem.FileSystem, p string) ([]byte, error) {
	file, err := fs.OpenFile(p, os.O_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("open %s in image: %w", p, err)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s from image: %w", p, err)
	}
	return data, nil
}

// normalizeComponent folds one path component into the form used for
// lookups: the ISO9660 version suffix and implied trailing dot are
// dropped and case is ignored, so plain and Rock Ridge directory reads
// resolve the same names.
func normalizeComponent(name string) string {
	if idx := strings.LastIndex(name, ";"); idx >= 0 {
		name = name[:idx]
	}
	name = strings.TrimSuffix(name, ".")
	return strings.ToLower(name)
}

func normalizePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i := range parts {
		parts[i] = normalizeComponent(parts[i])
	}
	return strings.Join(parts, "/")
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
