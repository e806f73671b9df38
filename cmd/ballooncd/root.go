package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ballooncd/internal/pipeline"
	"ballooncd/internal/services"
)

const version = "0.1.0"

func newRootCommand() *cobra.Command {
	var (
		configFlag string
		volumeID   string
		outputPath string
		noParity   bool
		verbose    int
		quiet      int
	)

	cctx := newCommandContext(&configFlag, &verbose, &quiet)

	rootCmd := &cobra.Command{
		Use:   "ballooncd [flags] INPUT...",
		Short: "Build a redundancy-maximized archival image from files and folders",
		Long: "ballooncd does whatever it takes to add error correction and redundancy\n" +
			"to backup files so that no space is wasted on a write-once archival\n" +
			"medium. Every input is copied, archived by every configured archiver,\n" +
			"compressed by every configured compressor, protected with par2 recovery\n" +
			"data, and sealed into an ISO9660/UDF image that dvdisaster pads with\n" +
			"error-correcting sectors.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return services.Wrap(services.ErrValidation, "cli", "parse arguments",
					"At least one input path is required", nil)
			}
			return nil
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := cctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cctx.newLogger()
			if err != nil {
				return err
			}
			runner, err := pipeline.New(cfg, pipeline.WithLogger(logger))
			if err != nil {
				return err
			}
			res, err := runner.Run(cmd.Context(), pipeline.Request{
				Inputs:     args,
				OutputPath: outputPath,
				VolumeID:   volumeID,
				NoParity:   noParity,
			})
			if err != nil {
				return err
			}
			printBuildSummary(cmd.OutOrStdout(), res)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "Increase the verbosity. Use twice for extra effect.")
	rootCmd.PersistentFlags().CountVarP(&quiet, "quiet", "q", "Decrease the verbosity. Use twice for extra effect.")

	rootCmd.Flags().StringVar(&volumeID, "volid", "",
		"Volume ID for the generated ISO (default: the first 32 characters of the first input's name)")
	rootCmd.Flags().StringVarP(&outputPath, "outpath", "o", "./output.iso", "Name of the ISO to generate")
	rootCmd.Flags().BoolVar(&noParity, "no-par2", false, "Don't generate .par2 files")

	rootCmd.AddCommand(newToolsCommand(cctx))
	rootCmd.AddCommand(newVerifyCommand(cctx))
	rootCmd.AddCommand(newRunsCommand(cctx))
	rootCmd.AddCommand(newConfigCommand(cctx))

	return rootCmd
}

func printBuildSummary(out io.Writer, res *pipeline.Result) {
	if res.ISOBytes > 0 {
		fmt.Fprintf(out, "Wrote %s (%s)\n", res.OutputPath, humanize.IBytes(uint64(res.ISOBytes)))
	} else {
		fmt.Fprintf(out, "Wrote %s\n", res.OutputPath)
	}
	fmt.Fprintf(out, "Volume ID: %s\n", res.VolumeID)
	fmt.Fprintf(out, "Staged %d files (%s) in %s\n",
		len(res.Entries),
		humanize.IBytes(uint64(res.TotalBytes)),
		res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(out, "Run ID: %s\n", res.RunID)
}
