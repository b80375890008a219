package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the resources reachable by the enabled backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := g.openBench(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			resources, err := env.bench.ListResources(cmd.Context())
			if err != nil {
				env.logger.Warn("some backends failed to list resources", "error", err)
			}

			out := cmd.OutOrStdout()
			if len(resources) == 0 {
				fmt.Fprintln(out, "No resources found.")
				return nil
			}
			for _, r := range resources {
				fmt.Fprintln(out, r)
			}

			return nil
		},
	}
}
