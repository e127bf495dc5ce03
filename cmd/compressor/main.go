package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	zlog.Init()

	if err := newRootCmd().Execute(); err != nil {
		zlog.Logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// newRootCmd creates the compressor command. Without a subcommand it
// runs the HTTP server.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "compressor",
		Short:         "Image and PDF compression service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (default ./config/config.yml)")

	root.AddCommand(newServeCmd(&configPath), newSweepCmd(&configPath))

	return root
}
