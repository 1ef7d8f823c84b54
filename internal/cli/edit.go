package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simp-lee/userdesk/internal/userform"
)

const isActiveFlag = "is-active"

// fieldFlags registers one string flag per form field and --is-active.
type fieldFlags struct {
	values map[string]*string
	active bool
}

func addFieldFlags(cmd *cobra.Command) *fieldFlags {
	ff := &fieldFlags{values: make(map[string]*string)}
	for _, field := range userform.Fields {
		if field == userform.IsActive {
			continue
		}
		name := flagName(field)
		ff.values[name] = cmd.Flags().String(name, "", userform.Label(field))
	}
	cmd.Flags().BoolVar(&ff.active, isActiveFlag, true, "whether the user is active")
	return ff
}

func flagName(field string) string {
	return strings.ReplaceAll(field, "_", "-")
}

func fieldName(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

// apply copies flags into form. With onlyChanged, flags left at their
// default are skipped. It returns how many fields were set.
func (ff *fieldFlags) apply(cmd *cobra.Command, form *userform.Form, onlyChanged bool) (int, error) {
	n := 0
	for name, v := range ff.values {
		if onlyChanged && !cmd.Flags().Changed(name) {
			continue
		}
		if err := form.Set(fieldName(name), *v); err != nil {
			return n, err
		}
		n++
	}
	if !onlyChanged || cmd.Flags().Changed(isActiveFlag) {
		if err := form.Set(userform.IsActive, strconv.FormatBool(ff.active)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func newGetCommand(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rec, err := c.sess.Records.Get(contextOf(cmd), id)
			if err != nil {
				return fmt.Errorf("could not load user %d: %w", id, err)
			}
			return writeUserDetail(cmd.OutOrStdout(), rec)
		},
	}
}

func newCreateCommand(c *client) *cobra.Command {
	var ff *fieldFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Long:  `Creates a user. Every field is required; the form is validated before anything is sent.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			form, m := c.sess.NewCreateForm()
			if _, err := ff.apply(cmd, form, false); err != nil {
				return err
			}
			res, err := form.SubmitCreate(contextOf(cmd), m)
			if err != nil {
				return printValidation(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (id %d)\n", res.Message, res.ID)
			return nil
		},
	}
	ff = addFieldFlags(cmd)
	return cmd
}

func newUpdateCommand(c *client) *cobra.Command {
	var ff *fieldFlags

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Edit a user",
		Long: `Loads the user, applies the given fields on top of the stored values,
validates the result and saves it.

	userdesk users update 7 --city Paris --is-active=false`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := contextOf(cmd)

			es, err := c.sess.OpenUser(ctx, id, userform.Edit)
			if err != nil {
				return fmt.Errorf("could not load user %d: %w", id, err)
			}
			n, err := ff.apply(cmd, es.Form(), true)
			if err != nil {
				return err
			}
			if n == 0 {
				return errors.New("nothing to update: pass at least one field flag")
			}

			res, err := es.Save(ctx)
			if err != nil {
				return printValidation(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return writeUserDetail(cmd.OutOrStdout(), &res.UserDetail)
		},
	}
	ff = addFieldFlags(cmd)
	return cmd
}
