package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wbrown/piecewise/resources"
)

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [uri]",
		Short: "Download a model into the model directory",
		Long: "Download the model at uri, or the configured model path, " +
			"into --model-dir and print its local path.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri := activeCfg.Model.Path
			if len(args) == 1 {
				uri = args[0]
			}
			resolver := &resources.Resolver{
				Dir:  activeCfg.Model.Dir,
				Auth: activeCfg.Model.Auth,
			}
			path, err := resolver.Resolve(uri)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
