package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/simp-lee/userdesk/internal/domain"
)

const dateLayout = "2006-01-02"

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeUserTable(w io.Writer, users []domain.UserSummary) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPHONE\tCITY\tGENDER\tSTATUS\tCREATED\tLAST LOGIN")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			u.ID, u.Name, u.Email, u.Phone, u.Address.City, u.Gender,
			status(u.IsActive), u.CreatedAt.Local().Format(dateLayout), lastLogin(u.LastLogin))
	}
	return tw.Flush()
}

func writeUserDetail(w io.Writer, d *domain.UserDetail) error {
	tw := newTabWriter(w)
	rows := [][2]string{
		{"ID", fmt.Sprint(d.ID)},
		{"First name", d.FirstName},
		{"Last name", d.LastName},
		{"Email", d.Email},
		{"Phone", d.Phone},
		{"Address", d.Address.Address},
		{"City", d.Address.City},
		{"Zip code", d.Address.ZipCode},
		{"Country", d.Address.Country},
		{"Date of birth", d.DateOfBirth},
		{"Gender", d.Gender},
		{"Status", status(d.IsActive)},
		{"Created", d.CreatedAt.Local().Format(dateLayout)},
		{"Last login", d.LastLoginDisplay()},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s:\t%s\n", r[0], r[1])
	}
	return tw.Flush()
}

func status(active bool) string {
	if active {
		return "Active"
	}
	return "Inactive"
}

func lastLogin(t *time.Time) string {
	if t == nil {
		return "Never"
	}
	return t.Local().Format(dateLayout)
}

func sortedFields(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
