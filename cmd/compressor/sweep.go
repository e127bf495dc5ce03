package main

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/compressor/internal/config"
	"github.com/aliskhannn/compressor/internal/storage/file"
	"github.com/aliskhannn/compressor/internal/sweeper"
)

// newSweepCmd creates a command that runs one sweep pass and exits.
func newSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired temp files once",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := config.MustLoad(*configPath)

			storage, err := file.NewStorage(afero.NewOsFs(), cfg.Storage.BaseDir)
			if err != nil {
				return err
			}

			st := sweeper.New(storage.Fs(), rootDirs(storage), cfg.Storage.Retention, cfg.Storage.SweepInterval).Sweep()
			zlog.Logger.Info().Int("removed", st.Removed).Int("failed", st.Failed).Msg("sweep done")

			return nil
		},
	}
}
