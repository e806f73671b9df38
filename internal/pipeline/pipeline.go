package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"ballooncd/internal/config"
	"ballooncd/internal/formats"
	"ballooncd/internal/fsutil"
	"ballooncd/internal/logging"
	"ballooncd/internal/manifest"
	"ballooncd/internal/preflight"
	"ballooncd/internal/services"
	"ballooncd/internal/services/dvdisaster"
	"ballooncd/internal/services/genisoimage"
	"ballooncd/internal/services/par2"
	"ballooncd/internal/stagedir"
	"ballooncd/internal/volid"
)

// Request describes one image build.
type Request struct {
	Inputs     []string
	OutputPath string
	// VolumeID overrides the identifier derived from the first input.
	VolumeID string
	NoParity bool
}

// Result summarizes a finished build.
type Result struct {
	RunID      string
	OutputPath string
	VolumeID   string
	Entries    []manifest.Entry
	TotalBytes int64
	ISOBytes   int64
	StartedAt  time.Time
	FinishedAt time.Time
}

// Option adjusts runner construction.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec services.Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithLogger routes run progress to the supplied logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.base = logger
			r.logger = logging.NewComponentLogger(logger, "pipeline")
		}
	}
}

// Runner drives image builds end to end.
type Runner struct {
	cfg *config.Config
	// base is handed to stage clients, which tag their own component.
	base   *slog.Logger
	logger *slog.Logger
	exec   services.Executor
}

// New constructs a Runner.
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	r := &Runner{
		cfg:    cfg,
		base:   logging.NewNop(),
		logger: logging.NewNop(),
		exec:   services.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run executes the full pipeline for one request. Missing inputs are
// skipped with a warning; any tool failure aborts the run. The staging
// directory is removed before Run returns, whatever happened.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if len(req.Inputs) == 0 {
		return nil, services.Wrap(services.ErrValidation, "setup", "validate request",
			"At least one input is required", nil)
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return nil, services.Wrap(services.ErrValidation, "setup", "validate request",
			"Output path is required", nil)
	}
	outPath, err := filepath.Abs(req.OutputPath)
	if err != nil {
		return nil, services.Wrap(services.ErrInternal, "setup", "resolve output path",
			fmt.Sprintf("Failed to resolve %s", req.OutputPath), err)
	}

	res := &Result{
		RunID:      uuid.NewString(),
		OutputPath: outPath,
		VolumeID:   volid.Resolve(req.VolumeID, req.Inputs),
		StartedAt:  time.Now().UTC(),
	}

	ctx = services.WithRunID(ctx, res.RunID)
	logger := logging.WithContext(ctx, r.logger)
	logger.InfoContext(ctx, "run started",
		logging.String("output", outPath),
		logging.String("volume_id", res.VolumeID),
		logging.Int("inputs", len(req.Inputs)),
		logging.Bool("parity", !req.NoParity))

	if !volid.IsPortable(res.VolumeID) {
		logger.WarnContext(ctx, "volume identifier uses characters outside the strict ISO9660 set",
			logging.String("volume_id", res.VolumeID),
			logging.String("portable_form", volid.Portable(res.VolumeID)))
	}

	lockPath := outPath + ".lock"
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrInternal, "setup", "acquire output lock",
			fmt.Sprintf("Failed to lock %s", lockPath), err)
	}
	if !locked {
		return nil, fmt.Errorf("another run is already building %s", outPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.WarnContext(ctx, "failed to release output lock", logging.Error(err))
		}
		_ = os.Remove(lockPath)
	}()

	r.logPreflight(ctx, logger, filepath.Dir(outPath), req)

	staging, err := stagedir.Create(outPath)
	if err != nil {
		return nil, services.Wrap(services.ErrInternal, "setup", "create staging",
			"Failed to create the staging directory", err)
	}
	logger.InfoContext(ctx, "staging directory created", logging.String("staging", staging))
	defer func() {
		if err := stagedir.Remove(staging); err != nil {
			logger.WarnContext(ctx, "failed to remove staging directory",
				logging.String("staging", staging), logging.Error(err))
		}
	}()

	runErr := r.build(ctx, req, staging, res)
	res.FinishedAt = time.Now().UTC()
	r.record(ctx, req, staging, res, runErr)
	if runErr != nil {
		return nil, runErr
	}

	logger.InfoContext(ctx, "run completed",
		logging.String("output", outPath),
		logging.Int("artifacts", len(res.Entries)),
		logging.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)))
	return res, nil
}

func (r *Runner) build(ctx context.Context, req Request, staging string, res *Result) error {
	if err := r.stageInputs(ctx, req, staging); err != nil {
		return err
	}
	if req.NoParity {
		logging.WithContext(ctx, r.logger).InfoContext(ctx, "parity generation disabled")
	} else if err := r.generateParity(ctx, staging); err != nil {
		return err
	}
	if err := r.writeManifest(ctx, staging, res); err != nil {
		return err
	}
	if err := r.authorImage(ctx, staging, res); err != nil {
		return err
	}
	if err := r.augmentImage(ctx, res); err != nil {
		return err
	}
	if info, err := os.Stat(res.OutputPath); err == nil {
		res.ISOBytes = info.Size()
	}
	return nil
}

func (r *Runner) stageInputs(ctx context.Context, req Request, staging string) error {
	ctx = services.WithStage(ctx, "staging")
	processor := stagedir.NewProcessor(
		stagedir.WithExecutor(r.exec),
		stagedir.WithBinaries(r.cfg.Binary),
		stagedir.WithLogger(r.base),
	)

	staged := 0
	for _, input := range req.Inputs {
		inputCtx := services.WithInput(ctx, input)
		if !fsutil.Exists(input) {
			logging.WithContext(inputCtx, r.logger).WarnContext(inputCtx, "input does not exist, skipping")
			continue
		}
		if err := processor.ProcessInput(inputCtx, staging, input); err != nil {
			return err
		}
		staged++
	}
	if staged == 0 {
		logging.WithContext(ctx, r.logger).WarnContext(ctx, "no inputs could be staged")
	}
	return nil
}

// generateParity protects every top-level staging entry, in name order.
// Entries that already are parity files are left alone.
func (r *Runner) generateParity(ctx context.Context, staging string) error {
	ctx = services.WithStage(ctx, "parity")
	logger := logging.WithContext(ctx, r.logger)
	creator := par2.NewCLI(
		par2.WithBinary(r.cfg.Binary("par2")),
		par2.WithRedundancy(r.cfg.Parity.RedundancyPercent),
		par2.WithRecoveryFiles(r.cfg.Parity.RecoveryFiles),
		par2.WithExecutor(r.exec),
		par2.WithLogger(r.base),
	)

	entries, err := os.ReadDir(staging)
	if err != nil {
		return services.Wrap(services.ErrInternal, "parity", "list staging",
			"Failed to list the staging directory", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, formats.Par2Ext) {
			continue
		}
		logger.InfoContext(ctx, "generating parity", logging.String("artifact", name))
		if _, err := creator.Create(ctx, filepath.Join(staging, name)); err != nil {
			return services.Wrap(services.ErrExternalTool, "parity", "create",
				fmt.Sprintf("Failed to produce parity for %s", name), err)
		}
	}
	return nil
}

func (r *Runner) writeManifest(ctx context.Context, staging string, res *Result) error {
	ctx = services.WithStage(ctx, "manifest")

	man, err := manifest.Build(staging, res.RunID, res.VolumeID)
	if err != nil {
		return services.Wrap(services.ErrInternal, "manifest", "build",
			"Failed to inventory the staging tree", err)
	}
	if err := man.Write(staging); err != nil {
		return services.Wrap(services.ErrInternal, "manifest", "write",
			"Failed to write the manifest", err)
	}

	res.Entries = man.Entries
	for _, entry := range man.Entries {
		res.TotalBytes += entry.Size
	}
	logging.WithContext(ctx, r.logger).InfoContext(ctx, "manifest sealed",
		logging.Int("files", len(man.Entries)),
		logging.Int64("bytes", res.TotalBytes))
	return nil
}

func (r *Runner) authorImage(ctx context.Context, staging string, res *Result) error {
	ctx = services.WithStage(ctx, "iso")
	builder := genisoimage.NewCLI(
		genisoimage.WithBinary(r.cfg.Binary("genisoimage")),
		genisoimage.WithApplicationID(r.cfg.ISO.ApplicationID),
		genisoimage.WithSystemID(r.cfg.ISO.SystemID),
		genisoimage.WithExecutor(r.exec),
		genisoimage.WithLogger(r.base),
	)

	logging.WithContext(ctx, r.logger).InfoContext(ctx, "authoring image",
		logging.String("output", res.OutputPath),
		logging.String("volume_id", res.VolumeID))
	if err := builder.Build(ctx, staging, res.OutputPath, res.VolumeID); err != nil {
		marker := services.ErrExternalTool
		if errors.Is(err, services.ErrCollision) {
			marker = services.ErrCollision
		}
		return services.Wrap(marker, "iso", "author image",
			fmt.Sprintf("Failed to author %s", filepath.Base(res.OutputPath)), err)
	}
	return nil
}

func (r *Runner) augmentImage(ctx context.Context, res *Result) error {
	ctx = services.WithStage(ctx, "ecc")
	augmenter := dvdisaster.NewCLI(
		dvdisaster.WithBinary(r.cfg.Binary("dvdisaster")),
		dvdisaster.WithMethod(r.cfg.ECC.Method),
		dvdisaster.WithMedium(r.cfg.ECC.Medium),
		dvdisaster.WithThreads(r.cfg.ECC.Threads),
		dvdisaster.WithExecutor(r.exec),
		dvdisaster.WithLogger(r.base),
	)

	logging.WithContext(ctx, r.logger).InfoContext(ctx, "augmenting image with recovery sectors",
		logging.String("method", r.cfg.ECC.Method),
		logging.String("medium", r.cfg.ECC.Medium))
	if err := augmenter.Augment(ctx, res.OutputPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "ecc", "augment image",
			fmt.Sprintf("Failed to augment %s", filepath.Base(res.OutputPath)), err)
	}
	return nil
}

func (r *Runner) logPreflight(ctx context.Context, logger *slog.Logger, outputDir string, req Request) {
	need := r.estimateNeed(req)
	for _, check := range preflight.RunAll(r.cfg, outputDir, need, !req.NoParity) {
		if check.Passed {
			continue
		}
		logger.WarnContext(ctx, "preflight check failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail))
	}
}

// estimateNeed projects what the run will write: every input lands once
// per archiver, twice per compressor, plus the original copy, with the
// parity percentage on top. Inputs that cannot be measured contribute
// nothing.
func (r *Runner) estimateNeed(req Request) int64 {
	var total int64
	for _, input := range req.Inputs {
		info, err := os.Stat(input)
		if err != nil {
			continue
		}
		if info.IsDir() {
			total += fsutil.DirSize(input)
			continue
		}
		total += info.Size()
	}

	fanout := int64(1 + len(formats.Archivers) + 2*len(formats.Compressors))
	need := total * fanout
	if !req.NoParity {
		need += need * int64(r.cfg.Parity.RedundancyPercent) / 100
	}
	return need
}
