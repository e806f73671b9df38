package stagedir

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ballooncd/internal/formats"
	"ballooncd/internal/fsutil"
	"ballooncd/internal/logging"
	"ballooncd/internal/services"
)

// Processor stages one input and derives every archive and compressed
// variant the command tables describe.
type Processor struct {
	exec    services.Executor
	resolve func(name string) string
	logger  *slog.Logger
}

// Option adjusts processor construction.
type Option func(*Processor)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec services.Executor) Option {
	return func(p *Processor) {
		if exec != nil {
			p.exec = exec
		}
	}
}

// WithBinaries maps a table command onto the binary to invoke for it.
// Defaults to the command itself.
func WithBinaries(resolve func(name string) string) Option {
	return func(p *Processor) {
		if resolve != nil {
			p.resolve = resolve
		}
	}
}

// WithLogger routes progress and tool output to the supplied logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logging.NewComponentLogger(logger, "stagedir")
		}
	}
}

// NewProcessor constructs a Processor using defaults.
func NewProcessor(opts ...Option) *Processor {
	proc := &Processor{
		exec:    services.CommandExecutor{},
		resolve: func(name string) string { return name },
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(proc)
	}
	return proc
}

// ProcessInput copies input into staging and fans it out: one archive
// per archiver, the plain-file copy compressed by every compressor, the
// kept .tar recompressed by every compressor, and compound extensions
// normalized to their short forms.
func (p *Processor) ProcessInput(ctx context.Context, staging, input string) error {
	base := filepath.Base(input)
	dest := filepath.Join(staging, base)

	p.logger.InfoContext(ctx, "staging input", logging.String("input", input))
	if err := fsutil.CopyAny(input, dest); err != nil {
		return services.Wrap(services.ErrInternal, "staging", "copy input",
			fmt.Sprintf("Failed to copy %s into staging", input), err)
	}

	if err := p.archive(ctx, staging, dest, base); err != nil {
		return err
	}

	info, err := os.Stat(dest)
	if err != nil {
		return services.Wrap(services.ErrInternal, "staging", "inspect copy",
			fmt.Sprintf("Failed to inspect staged copy of %s", base), err)
	}
	if err := p.compress(ctx, staging, dest, base, !info.IsDir()); err != nil {
		return err
	}

	if err := applyRenames(dest); err != nil {
		return services.Wrap(services.ErrInternal, "staging", "rename artifacts",
			fmt.Sprintf("Failed to normalize compound extensions for %s", base), err)
	}
	return nil
}

// archive produces one archive per table entry. An artifact that
// already exists is left alone so re-runs never redo finished work.
func (p *Processor) archive(ctx context.Context, staging, dest, base string) error {
	for _, tool := range formats.Archivers {
		target := dest + tool.Ext
		if fsutil.Exists(target) {
			p.logger.InfoContext(ctx, "archive already present, skipping",
				logging.String("artifact", filepath.Base(target)))
			continue
		}
		binary := p.resolve(tool.Command())
		p.logger.InfoContext(ctx, "archiving input",
			logging.String("artifact", filepath.Base(target)),
			logging.String("tool", binary))
		if err := p.exec.Run(ctx, staging, binary, tool.Args(target, base), p.forward(ctx)); err != nil {
			return services.Wrap(services.ErrExternalTool, "staging", "archive",
				fmt.Sprintf("Failed to produce %s", filepath.Base(target)), err)
		}
	}
	return nil
}

// compress runs every compressor over the plain-file copy (absolute
// path) and over the kept tar (name relative to staging). Each pass
// keeps its input, so the same tar yields one compound artifact per
// compressor. Directory inputs have no plain-file branch.
func (p *Processor) compress(ctx context.Context, staging, dest, base string, plainFile bool) error {
	tarName := base + formats.TarExt
	for _, tool := range formats.Compressors {
		binary := p.resolve(tool.Command())
		if plainFile {
			p.logger.InfoContext(ctx, "compressing input",
				logging.String("artifact", base+tool.Ext),
				logging.String("tool", binary))
			if err := p.exec.Run(ctx, staging, binary, tool.Args(dest), p.forward(ctx)); err != nil {
				return services.Wrap(services.ErrExternalTool, "staging", "compress",
					fmt.Sprintf("Failed to produce %s", base+tool.Ext), err)
			}
		}
		p.logger.InfoContext(ctx, "compressing archive",
			logging.String("artifact", tarName+tool.Ext),
			logging.String("tool", binary))
		if err := p.exec.Run(ctx, staging, binary, tool.Args(tarName), p.forward(ctx)); err != nil {
			return services.Wrap(services.ErrExternalTool, "staging", "compress",
				fmt.Sprintf("Failed to produce %s", tarName+tool.Ext), err)
		}
	}
	return nil
}

func (p *Processor) forward(ctx context.Context) func(string) {
	return func(line string) {
		p.logger.DebugContext(ctx, line)
	}
}

// applyRenames gives tar+compressor outputs their canonical short
// extensions. Compounds without a short form stay as produced.
func applyRenames(dest string) error {
	for _, rename := range formats.TarRenames {
		from := dest + rename.From
		if !fsutil.Exists(from) {
			continue
		}
		if err := os.Rename(from, dest+rename.To); err != nil {
			return err
		}
	}
	return nil
}
