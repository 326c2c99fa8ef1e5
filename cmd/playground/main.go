// Command playground serves the worker agents over HTTP and MCP.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/petasbytes/concept-tutor/internal/cli"
	"github.com/petasbytes/concept-tutor/internal/config"
	"github.com/petasbytes/concept-tutor/internal/playground"
	"github.com/petasbytes/concept-tutor/memory"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	var flags cli.Flags

	cmd := &cobra.Command{
		Use:          "playground",
		Short:        "Serve the tutor agents over HTTP",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cli.Bootstrap(v, flags)
			if err != nil {
				return err
			}
			defer env.Close()

			store := memory.NewStore(filepath.Join(env.Config.DataDir, "sessions"))
			agents := env.Agents.Served(env.Config.Playground.IncludeTeam)
			srv := playground.New(agents, store, env.Logger.With("component", "playground"))
			return cli.Serve(cmd.Context(), env.Config.Playground.Addr, srv, env.Logger)
		},
	}
	cli.AddFlags(cmd, v, &flags, "playground.addr", config.Default().Playground.Addr)
	cmd.PersistentFlags().Bool("include-team", false, "also serve the coordinating team agent")
	_ = v.BindPFlag("playground.include_team", cmd.PersistentFlags().Lookup("include-team"))
	return cmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
