package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"faceframe/internal/ipc"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage the face detection worker process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "restart",
		Short: "Stop the worker and spawn a fresh process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.WorkerRestart()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Worker restarted (pid %d)\n", resp.WorkerPID)
				return nil
			})
		},
	})

	return cmd
}

func newPingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Probe worker liveness through the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Ping(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "pong")
				return nil
			})
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Shut the daemon down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Shutdown(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopping")
				return nil
			})
		},
	}
}
