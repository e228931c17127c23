package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"faceframe/internal/ipc"
)

var errNeedsConfirmation = errors.New("destructive action needs confirmation; rerun with --yes")

// confirm asks the user interactively, or falls back to the --yes flag when
// stdin is not a terminal. Declining is not an error.
func confirm(cmd *cobra.Command, prompt string, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	stdin, ok := cmd.InOrStdin().(*os.File)
	if !ok || !isatty.IsTerminal(stdin.Fd()) {
		return false, errNeedsConfirmation
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	reader := bufio.NewReader(stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "merge <keep-id> <merge-id>",
		Short: "Merge one person into another",
		Long: "Merge moves every face of <merge-id> onto <keep-id> and deletes " +
			"<merge-id>. The kept person's name survives. This cannot be undone.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			keepID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid keep id %q", args[0])
			}
			mergeID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid merge id %q", args[1])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				proposal, err := client.ProposeMerge(keepID, mergeID)
				if err != nil {
					return err
				}
				ok, err := confirm(cmd,
					fmt.Sprintf("Merge person %d into person %d? This cannot be undone.", mergeID, keepID),
					assumeYes)
				if err != nil || !ok {
					_ = client.DiscardProposal(proposal.Token)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Merge declined")
					return nil
				}
				if err := client.ConfirmMerge(proposal.Token); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Merged person %d into person %d\n", mergeID, keepID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newClearIndexCommand(ctx *commandContext) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "clear-index",
		Short: "Delete the face index of the selected folder",
		Long: "Clear-index removes all detections, persons, and thumbnails for " +
			"the selected folder. The photos themselves are untouched.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				proposal, err := client.ProposeClearIndex()
				if err != nil {
					return err
				}
				ok, err := confirm(cmd,
					fmt.Sprintf("Delete the entire face index of %s? This cannot be undone.", proposal.Folder),
					assumeYes)
				if err != nil || !ok {
					_ = client.DiscardProposal(proposal.Token)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Clear declined")
					return nil
				}
				if err := client.ConfirmClearIndex(proposal.Token); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Index of %s cleared\n", proposal.Folder)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
