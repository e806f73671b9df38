package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ballooncd/internal/preflight"
)

func newToolsCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Check the external tools the pipeline shells out to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			var rows [][]string
			var missing []string
			for _, status := range preflight.CheckExternalTools(cfg, true) {
				state := "ok"
				notes := status.Description
				if !status.Available {
					state = "missing"
					notes = status.Detail
					missing = append(missing, status.Name)
				}
				rows = append(rows, []string{status.Name, status.Command, state, notes})
			}

			printTable(stdout,
				[]string{"Tool", "Command", "Status", "Notes"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft})

			if len(missing) == 0 {
				fmt.Fprintln(stdout, "All external tools are available")
				return nil
			}
			fmt.Fprintf(stdout, "Missing tools: %s\n", strings.Join(missing, ", "))
			return nil
		},
	}
}
