package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/simp-lee/userdesk/internal/domain"
	"github.com/simp-lee/userdesk/internal/querycache"
	"github.com/simp-lee/userdesk/internal/userlist"
)

// Row and viewport sizes of the simulated table, in the same units as the
// scroll margin.
const (
	rowHeight      = 48
	viewportHeight = 480
)

func newListCommand(c *client) *cobra.Command {
	var (
		filters  userlist.FilterState
		pageSize int
		pages    int
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users, page by page",
		Long: `Lists users matching the filters. Pages after the first are fetched the
way the table does it: by scrolling the sentinel row into range.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if filters.Active != "" && filters.Active != domain.ActiveOnly && filters.Active != domain.InactiveOnly {
				return fmt.Errorf("invalid --active %q: must be %q or %q", filters.Active, domain.ActiveOnly, domain.InactiveOnly)
			}
			if pages < 1 {
				return fmt.Errorf("invalid --pages %d: must be at least 1", pages)
			}
			ctx := contextOf(cmd)

			var opts []userlist.Option
			if pageSize > 0 {
				opts = append(opts, userlist.WithPageSize(pageSize))
			}
			ctrl, err := c.sess.NewListController(ctx, opts...)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			snap, err := ctrl.Apply(ctx, filters)
			if err != nil {
				return fmt.Errorf("could not load users: %w", err)
			}
			for all || snap.Pages < pages {
				fetched, err := ctrl.OnScroll(ctx, scrolledToEnd(len(snap.Items)))
				if err != nil {
					return fmt.Errorf("could not load users: %w", err)
				}
				if !fetched {
					break
				}
				snap = ctrl.Snapshot()
			}

			return renderList(cmd.OutOrStdout(), snap)
		},
	}

	f := cmd.Flags()
	f.StringVar(&filters.Filter, "filter", "", "match words in first name, last name or email")
	f.StringVar(&filters.Active, "active", "", `status facet: "active" or "inactive"`)
	f.StringVar(&filters.Gender, "gender", "", "gender facet, e.g. male or female")
	f.IntVar(&pageSize, "page-size", 0, "rows per page (default from list.page_size)")
	f.IntVar(&pages, "pages", 1, "number of pages to load")
	f.BoolVar(&all, "all", false, "load every page")
	return cmd
}

// scrolledToEnd is the table scrolled as far down as n rows allow.
func scrolledToEnd(n int) userlist.Geometry {
	content := float64(n * rowHeight)
	top := max(content-viewportHeight, 0)
	return userlist.Geometry{ScrollTop: top, ViewportHeight: viewportHeight, SentinelTop: content}
}

func renderList(w io.Writer, snap querycache.Snapshot) error {
	if len(snap.Items) == 0 {
		fmt.Fprintln(w, "No users found.")
		return nil
	}
	if err := writeUserTable(w, snap.Items); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nShowing %d of %d users", len(snap.Items), snap.Total)
	if snap.HasNextPage {
		fmt.Fprintf(w, " (more available: --pages %d or --all)", snap.Pages+1)
	}
	fmt.Fprintln(w)
	return nil
}
