// Package report renders session reports for people and tools.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/SoarinFerret/SessionTally/internal/session"
)

var ErrUnknownFormat = errors.New("unknown report format")

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Row is one user's line in a rendered report.
type Row struct {
	User            string `json:"user" yaml:"user"`
	session.Summary `yaml:",inline"`
}

// Rows returns the report sorted by username.
func Rows(r session.Report) []Row {
	users := make([]string, 0, len(r))
	for u := range r {
		users = append(users, u)
	}
	sort.Strings(users)

	rows := make([]Row, 0, len(users))
	for _, u := range users {
		rows = append(rows, Row{User: u, Summary: r[u]})
	}
	return rows
}

// Render writes r to w in the given format.
func Render(w io.Writer, r session.Report, format string) error {
	switch format {
	case "", FormatText:
		return renderText(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Rows(r))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Rows(r)); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// renderText prints "<user> <sessions> <seconds>" with seconds truncated
// toward zero.
func renderText(w io.Writer, r session.Report) error {
	for _, row := range Rows(r) {
		if _, err := fmt.Fprintf(w, "%s %d %d\n", row.User, row.Sessions, int64(row.TotalSeconds)); err != nil {
			return err
		}
	}
	return nil
}
