package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"faculty-eval-service/internal/config"
	"faculty-eval-service/internal/infra/postgres"
	"faculty-eval-service/internal/logger"
	"faculty-eval-service/internal/seed"
)

// NewSeedCmd loads the demo config, question bank and accounts into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed demo configuration, quiz questions and users",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			log := logger.New(cfg.Log.Level, cfg.Log.File)
			defer log.Sync()

			if err := runMigrationsWithConfig(cmd.Context(), cfg, log); err != nil {
				return err
			}
			db := postgres.Open(cfg.Postgres.URL)
			defer db.Close()

			data, err := seed.Default()
			if err != nil {
				return err
			}
			res, err := seed.Run(cmd.Context(), seed.Stores{
				Users:     postgres.NewUserStore(db),
				Questions: postgres.NewQuestionStore(db),
				Config:    postgres.NewConfigStore(db),
			}, data, log)
			if err != nil {
				return err
			}
			log.Info("seed completed",
				zap.Int("questions", res.Questions),
				zap.Int("users_created", res.UsersCreated),
				zap.Int("users_skipped", res.UsersSkipped))
			return nil
		},
	}
}
