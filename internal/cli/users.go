package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/simp-lee/logger"
	"github.com/spf13/cobra"

	"github.com/simp-lee/userdesk/internal/config"
	"github.com/simp-lee/userdesk/internal/domain"
	"github.com/simp-lee/userdesk/internal/session"
)

// client is what every users subcommand runs against.
type client struct {
	cfg  *config.Config
	log  *logger.Logger
	sess *session.Session
}

func (c *client) close() {
	if c != nil && c.log != nil {
		_ = c.log.Close()
	}
}

func newUsersCommand(root *rootOptions) *cobra.Command {
	c := &client{}

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Browse and edit user records through the users API",
		Long: `Talks to the users API at gateway.base_url (APP__GATEWAY__BASE_URL).
The config file is optional for these commands.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadOptional(root.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := config.SetupLogger(&cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("setup logger: %w", err)
			}
			sess, err := session.New(cfg, session.WithLogger(log.Logger))
			if err != nil {
				_ = log.Close()
				return err
			}
			*c = client{cfg: cfg, log: log, sess: sess}

			// One id per invocation, forwarded as X-Request-ID.
			ctx := logger.WithContextAttrs(cmd.Context(), slog.String("request_id", uuid.NewString()))
			cmd.SetContext(ctx)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			c.close()
		},
	}

	cmd.AddCommand(
		newListCommand(c),
		newGetCommand(c),
		newCreateCommand(c),
		newUpdateCommand(c),
		newDeleteCommand(c),
	)
	return cmd
}

func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 0)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid user id %q: must be a positive integer", arg)
	}
	return uint(id), nil
}

// printValidation writes each field error on its own line and returns a
// short error for the exit status.
func printValidation(cmd *cobra.Command, err error) error {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	w := cmd.ErrOrStderr()
	fmt.Fprintln(w, "Please fix the following fields:")
	for _, field := range sortedFields(ve.Fields) {
		fmt.Fprintf(w, "  %s: %s\n", field, ve.Fields[field])
	}
	return errors.New("validation failed")
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
