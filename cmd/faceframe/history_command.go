package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"faceframe/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently finished jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				if len(resp.Runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No finished jobs recorded")
					return nil
				}
				rows := make([][]string, 0, len(resp.Runs))
				for _, run := range resp.Runs {
					rows = append(rows, []string{
						run.Finished,
						run.Kind,
						run.Folder,
						run.Result,
						renderRunProgress(run),
						run.Message,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Finished", "Kind", "Folder", "Result", "Progress", "Message"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.ClearHistory(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
				return nil
			})
		},
	})

	return cmd
}

func renderRunProgress(run ipc.Run) string {
	if run.Total > 0 {
		return strconv.Itoa(run.Current) + "/" + strconv.Itoa(run.Total)
	}
	if run.Current > 0 {
		return strconv.Itoa(run.Current)
	}
	return "-"
}
