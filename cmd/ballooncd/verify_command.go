package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ballooncd/internal/catalog"
	"ballooncd/internal/services"
	"ballooncd/internal/verify"
)

func newVerifyCommand(cctx *commandContext) *cobra.Command {
	var deep bool

	cmd := &cobra.Command{
		Use:   "verify IMAGE",
		Short: "Check an image against its embedded manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := cctx.newLogger()
			if err != nil {
				return err
			}

			verifier := verify.New(verify.WithDeep(deep), verify.WithLogger(logger))
			report, err := verifier.VerifyImage(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "Image: %s\n", report.ImagePath)
			if report.Label != "" {
				fmt.Fprintf(stdout, "Label: %s\n", report.Label)
			}
			if report.RunID != "" {
				fmt.Fprintf(stdout, "Run ID: %s\n", report.RunID)
			}
			if !report.CreatedAt.IsZero() {
				fmt.Fprintf(stdout, "Created: %s\n", formatTimestamp(report.CreatedAt))
			}

			var rows [][]string
			for _, file := range report.Files {
				if file.Status == verify.StatusOK && file.Deep != verify.DeepFailed {
					continue
				}
				status := file.Status
				if file.Deep == verify.DeepFailed {
					status = "deep failed"
				}
				rows = append(rows, []string{
					file.Path,
					humanize.IBytes(uint64(file.Size)),
					status,
					file.Detail,
				})
			}
			if len(rows) > 0 {
				printTable(stdout,
					[]string{"Path", "Size", "Status", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft})
			}

			okCount, failed, skipped := report.Counts()
			fmt.Fprintf(stdout, "Checked %d files: %d ok, %d failed, %d deep-skipped\n",
				len(report.Files), okCount, failed, skipped)
			for _, extra := range report.Extra {
				fmt.Fprintf(stdout, "Extra file not in manifest: %s\n", extra)
			}

			if report.RunID != "" && cctx.hasCatalog() {
				crossErr := cctx.withStore(func(store *catalog.Store) error {
					run, _, err := store.GetRun(cmd.Context(), report.RunID)
					if err != nil {
						return err
					}
					fmt.Fprintf(stdout, "Catalog: run %s recorded %s at %s\n",
						shortID(run.ID), run.Status, formatTimestamp(run.FinishedAt))
					return nil
				})
				switch {
				case crossErr == nil:
				case errors.Is(crossErr, services.ErrNotFound):
					fmt.Fprintln(stdout, "Catalog: the image's run is not recorded here")
				default:
					fmt.Fprintf(stdout, "Catalog: unavailable (%v)\n", crossErr)
				}
			}

			if !report.OK() {
				return fmt.Errorf("verification failed for %s", args[0])
			}
			fmt.Fprintln(stdout, "Verification passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&deep, "deep", false, "Also decode derived artifacts with in-process readers")
	return cmd
}
