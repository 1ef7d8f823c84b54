package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simp-lee/userdesk/internal/app"
	"github.com/simp-lee/userdesk/internal/config"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the users API",
		Long: `Runs the users API until SIGINT or SIGTERM. The schema is migrated
automatically in debug mode, or always with --migrate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			log, err := config.SetupLogger(&cfg.Log)
			if err != nil {
				return fmt.Errorf("setup logger: %w", err)
			}
			defer log.Close()

			a, err := app.New(cfg, app.WithLogger(log), app.WithMigrate(migrate))
			if err != nil {
				return fmt.Errorf("create app: %w", err)
			}
			return a.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run schema migrations before serving")
	return cmd
}
