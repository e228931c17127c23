package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"faceframe/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and worker status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderStatus(status))
				return nil
			})
		},
	}
}

func renderStatus(status *ipc.StatusResponse) string {
	rows := [][]string{
		{"Running", yesNo(status.Running)},
		{"Daemon PID", strconv.Itoa(status.PID)},
		{"Worker alive", yesNo(status.WorkerAlive)},
		{"Worker PID", strconv.Itoa(status.WorkerPID)},
		{"Job", describeJob(status.Job)},
		{"Folder", orDash(status.Folder)},
		{"Persons", strconv.Itoa(status.PersonCount)},
		{"Unclustered faces", strconv.Itoa(status.UnclusteredCount)},
		{"Asset server", orDash(status.AssetAddr)},
	}
	if !status.WorkerAlive && status.WorkerExitCode >= 0 {
		rows = append(rows, []string{"Worker exit code", strconv.Itoa(status.WorkerExitCode)})
	}
	return renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
}

func describeJob(job ipc.Job) string {
	if job.State == "" || job.State == "idle" {
		return "idle"
	}
	desc := fmt.Sprintf("%s (%s)", job.Kind, job.State)
	if job.Total > 0 {
		desc += fmt.Sprintf(" %d/%d", job.Current, job.Total)
	} else if job.Current > 0 {
		desc += fmt.Sprintf(" %d", job.Current)
	}
	return desc
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
