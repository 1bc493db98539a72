package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yds-challenge-service/internal/config"
	"yds-challenge-service/internal/logging"
)

// NewCleanupCmd runs one stale room sweep and exits.
func NewCleanupCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete abandoned lobbies and expired finished rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
			if err != nil {
				return err
			}
			defer logger.Sync()

			b, err := newBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			rep, err := b.service.CleanupStaleRooms(cmd.Context(), cleanupPolicy(cfg))
			if err != nil {
				return err
			}
			logger.Info("cleanup done", zap.Int("waiting_deleted", rep.Waiting), zap.Int("finished_deleted", rep.Finished))
			return nil
		},
	}
}
