package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simp-lee/userdesk/internal/domain"
)

func newDeleteCommand(c *client) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a user after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := contextOf(cmd)

			rec, err := c.sess.Records.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("could not load user %d: %w", id, err)
			}
			dialog, err := c.sess.NewDeleteDialog()
			if err != nil {
				return err
			}
			name := strings.TrimSpace(rec.FirstName + " " + rec.LastName)
			if err := dialog.Request(&domain.UserSummary{ID: rec.ID, Name: name, Email: rec.Email}); err != nil {
				return err
			}

			if !yes && !confirm(cmd, fmt.Sprintf("Delete user %d (%s)? This cannot be undone. [y/N]: ", rec.ID, name)) {
				dialog.Cancel()
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}

			res, err := dialog.Confirm(ctx)
			if err != nil {
				return errors.New(dialog.Message())
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
