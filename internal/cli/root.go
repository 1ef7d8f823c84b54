// Package cli implements the userdesk command line.
package cli

import (
	"github.com/spf13/cobra"
)

// DefaultConfigPath is where commands look for the config file.
const DefaultConfigPath = "configs/config.yaml"

type rootOptions struct {
	configPath string
}

// NewRootCommand builds the userdesk command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "userdesk",
		Short: "Manage user records",
		Long: `userdesk runs the users API and browses, creates, edits and deletes
user records against a running instance.

	userdesk serve --migrate
	userdesk users list --filter ann --gender female --all
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", DefaultConfigPath, "path to configuration file")

	root.AddCommand(newServeCommand(opts))
	root.AddCommand(newUsersCommand(opts))
	return root
}
