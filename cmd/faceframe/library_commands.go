package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"faceframe/internal/ipc"
)

func newPersonsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "persons",
		Short: "List known persons in the selected folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Persons()
				if err != nil {
					return err
				}
				if len(resp.Persons) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No persons yet; run `faceframe scan` and `faceframe cluster` first")
					return nil
				}
				rows := make([][]string, 0, len(resp.Persons))
				for _, p := range resp.Persons {
					rows = append(rows, []string{
						strconv.FormatInt(p.ID, 10),
						p.Name,
						strconv.Itoa(p.FaceCount),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Faces"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func newUnclusteredCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unclustered",
		Short: "List faces not yet assigned to a person",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Unclustered()
				if err != nil {
					return err
				}
				if len(resp.Faces) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No unclustered faces")
					return nil
				}
				rows := make([][]string, 0, len(resp.Faces))
				for _, face := range resp.Faces {
					rows = append(rows, []string{
						strconv.FormatInt(face.ID, 10),
						face.Photo,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Face ID", "Photo"},
					rows,
					[]columnAlignment{alignRight, alignLeft}))
				return nil
			})
		},
	}
}

func newPhotosCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "photos <person-id>",
		Short: "List every photo a person appears in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			personID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid person id %q", args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.PhotosByPerson(personID)
				if err != nil {
					return err
				}
				if len(resp.Photos) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No photos recorded for person %d\n", personID)
					return nil
				}
				for _, photo := range resp.Photos {
					fmt.Fprintln(cmd.OutOrStdout(), photo)
				}
				return nil
			})
		},
	}
}

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-read persons and unclustered faces from the worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Refresh(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Refresh requested")
				return nil
			})
		},
	}
}

func newRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <person-id> <name>",
		Short: "Rename a person",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			personID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid person id %q", args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.RenamePerson(personID, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Person %d renamed to %s\n", personID, args[1])
				return nil
			})
		},
	}
}
