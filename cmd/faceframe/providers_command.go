package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"faceframe/internal/ipc"
)

func newProvidersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the worker's execution providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Providers()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderProviders(resp))
				return nil
			})
		},
	}
}

func renderProviders(resp *ipc.ProvidersResponse) string {
	rows := make([][]string, 0, len(resp.Providers))
	for _, provider := range resp.Providers {
		rows = append(rows, []string{provider, providerClass(provider)})
	}
	out := renderTable([]string{"Provider", "Type"}, rows, []columnAlignment{alignLeft, alignLeft})
	if resp.GPUInfo != "" {
		out += "\nGPU: " + resp.GPUInfo
	}
	return out
}

// providerClass mirrors the worker's own heuristic: a provider name
// containing "CUDA" runs on the GPU, everything else on the CPU.
func providerClass(provider string) string {
	if strings.Contains(provider, "CUDA") {
		return "GPU"
	}
	return "CPU"
}
