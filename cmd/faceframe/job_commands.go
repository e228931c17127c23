package main

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"faceframe/internal/ipc"
)

func newFolderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "folder <path>",
		Short: "Select the active photo folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SelectFolder(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Selected folder %s\n", resp.Folder)
				return nil
			})
		},
	}
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var provider string
	var follow bool

	cmd := &cobra.Command{
		Use:   "scan [folder]",
		Short: "Start a face detection scan",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				folder := ""
				if len(args) == 1 {
					folder = args[0]
				}
				resp, err := client.Scan(folder, provider)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scanning %s\n", resp.Folder)
				if !follow {
					return nil
				}
				return followJob(cmd, client, "Scanning")
			})
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Execution provider for this scan")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stay attached and show progress")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the running scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.CancelScan(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cancellation requested; the scan stops at the next file boundary")
				return nil
			})
		},
	}
}

func newClusterCommand(ctx *commandContext) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Group detected faces into persons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Cluster()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Clustering %s\n", resp.Folder)
				if !follow {
					return nil
				}
				return followJob(cmd, client, "Clustering")
			})
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stay attached and show progress")
	return cmd
}

// followJob polls the daemon and renders a progress bar until the job ends.
// Progress totals may be unknown at first; the bar max is raised once the
// worker reports one.
func followJob(cmd *cobra.Command, client *ipc.Client, description string) error {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	for {
		time.Sleep(300 * time.Millisecond)
		status, err := client.Status()
		if err != nil {
			return err
		}
		job := status.Job
		if job.State == "" || job.State == "idle" {
			_ = bar.Finish()
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "Done")
			return nil
		}
		if job.Total > 0 {
			bar.ChangeMax(job.Total)
		}
		_ = bar.Set(job.Current)
	}
}
