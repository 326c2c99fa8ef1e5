// Command tutor serves the interactive learning page.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/petasbytes/concept-tutor/internal/cli"
	"github.com/petasbytes/concept-tutor/internal/config"
	"github.com/petasbytes/concept-tutor/internal/lesson"
	"github.com/petasbytes/concept-tutor/internal/webui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	var flags cli.Flags

	cmd := &cobra.Command{
		Use:   "tutor",
		Short: "Interactive Python learning assistant",
		Long: `tutor serves a page where you name a programming concept and get a GIF,
a web-sourced explanation and GitHub code examples, each from its own agent.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cli.Bootstrap(v, flags)
			if err != nil {
				return err
			}
			defer env.Close()

			agents := env.Agents
			l := lesson.New(agents.Giphy, agents.Web, agents.GitHub, lesson.Options{
				CodeLanguage: env.Config.CodeLanguage,
				Logger:       env.Logger.Slog(),
				Telemetry:    env.Telemetry,
			})
			ui := webui.New(l, env.Config.CodeLanguage, env.Logger.With("component", "webui").Slog())
			return cli.Serve(cmd.Context(), env.Config.UI.Addr, ui, env.Logger)
		},
	}
	cli.AddFlags(cmd, v, &flags, "ui.addr", config.Default().UI.Addr)
	return cmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
