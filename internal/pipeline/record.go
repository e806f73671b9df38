package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"ballooncd/internal/catalog"
	"ballooncd/internal/logging"
	"ballooncd/internal/manifest"
)

// record persists the run in the catalog. Recording is best-effort: a
// catalog problem is logged and the run outcome stands.
func (r *Runner) record(ctx context.Context, req Request, staging string, res *Result, runErr error) {
	if !r.cfg.Catalog.Enabled {
		return
	}
	logger := logging.WithContext(ctx, r.logger)

	store, err := catalog.Open(r.cfg.Catalog.Path)
	if err != nil {
		logger.WarnContext(ctx, "failed to open the run catalog", logging.Error(err))
		return
	}
	defer func() { _ = store.Close() }()

	run := catalog.Run{
		ID:         res.RunID,
		VolumeID:   res.VolumeID,
		OutputPath: res.OutputPath,
		Inputs:     req.Inputs,
		Status:     catalog.StatusCompleted,
		TotalBytes: res.TotalBytes,
		ISOBytes:   res.ISOBytes,
		Par2:       !req.NoParity,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
	}
	if runErr != nil {
		run.Status = catalog.StatusFailed
		run.Error = runErr.Error()
	}

	artifacts := make([]catalog.Artifact, 0, len(res.Entries)+1)
	for _, entry := range res.Entries {
		artifacts = append(artifacts, catalog.Artifact{
			RunID:  res.RunID,
			Path:   entry.Path,
			Kind:   catalog.Classify(entry.Path),
			Size:   entry.Size,
			BLAKE3: entry.BLAKE3,
		})
	}
	if row, ok := manifestArtifact(staging, res.RunID); ok {
		artifacts = append(artifacts, row)
	}
	run.ArtifactCount = len(artifacts)

	if err := store.RecordRun(ctx, run, artifacts); err != nil {
		logger.WarnContext(ctx, "failed to record the run", logging.Error(err))
		return
	}
	logger.DebugContext(ctx, "run recorded",
		logging.String("catalog", store.Path()),
		logging.Int("artifacts", len(artifacts)))
}

// manifestArtifact builds the catalog row for the manifest file itself,
// which cannot list its own digest.
func manifestArtifact(staging, runID string) (catalog.Artifact, bool) {
	path := filepath.Join(staging, manifest.FileName)
	info, err := os.Stat(path)
	if err != nil {
		return catalog.Artifact{}, false
	}
	digest, err := manifest.HashFile(path)
	if err != nil {
		return catalog.Artifact{}, false
	}
	return catalog.Artifact{
		RunID:  runID,
		Path:   manifest.FileName,
		Kind:   catalog.KindManifest,
		Size:   info.Size(),
		BLAKE3: digest,
	}, true
}
