package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ballooncd/internal/catalog"
)

func newRunsCommand(cctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded image builds",
	}

	runsCmd.AddCommand(newRunsListCommand(cctx))
	runsCmd.AddCommand(newRunsShowCommand(cctx))

	return runsCmd
}

func newRunsListCommand(cctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withStore(func(store *catalog.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}

				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					image := "-"
					if run.ISOBytes > 0 {
						image = humanize.IBytes(uint64(run.ISOBytes))
					}
					rows = append(rows, []string{
						shortID(run.ID),
						run.VolumeID,
						run.Status,
						formatTimestamp(run.StartedAt),
						strconv.Itoa(run.ArtifactCount),
						image,
					})
				}
				printTable(cmd.OutOrStdout(),
					[]string{"ID", "Volume", "Status", "Started", "Files", "Image"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight})
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	return cmd
}

func newRunsShowCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one run and its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withStore(func(store *catalog.Store) error {
				run, artifacts, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run: %s\n", run.ID)
				fmt.Fprintf(out, "Volume ID: %s\n", run.VolumeID)
				fmt.Fprintf(out, "Output: %s\n", run.OutputPath)
				fmt.Fprintf(out, "Status: %s\n", run.Status)
				if run.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", run.Error)
				}
				fmt.Fprintf(out, "Inputs: %s\n", strings.Join(run.Inputs, ", "))
				fmt.Fprintf(out, "Parity: %s\n", yesNo(run.Par2))
				fmt.Fprintf(out, "Started: %s\n", formatTimestamp(run.StartedAt))
				fmt.Fprintf(out, "Elapsed: %s\n", formatElapsed(run.StartedAt, run.FinishedAt))
				if run.ISOBytes > 0 {
					fmt.Fprintf(out, "Image: %s\n", humanize.IBytes(uint64(run.ISOBytes)))
				}

				if len(artifacts) == 0 {
					return nil
				}
				fmt.Fprintf(out, "Artifacts: %d files, %s staged\n",
					len(artifacts), humanize.IBytes(uint64(run.TotalBytes)))

				rows := make([][]string, 0, len(artifacts))
				for _, artifact := range artifacts {
					rows = append(rows, []string{
						artifact.Path,
						artifact.Kind,
						humanize.IBytes(uint64(artifact.Size)),
						shortDigest(artifact.BLAKE3),
					})
				}
				printTable(out,
					[]string{"Path", "Kind", "Size", "BLAKE3"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft})
				return nil
			})
		},
	}
}
