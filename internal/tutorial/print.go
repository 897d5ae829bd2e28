package tutorial

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// Print writes the report as plain text or, when format is "json", as an
// indented JSON document.
func Print(w io.Writer, r *Report, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	for i, s := range r.Sections {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		header := "== " + s.Title + " =="
		if s.Queries > 0 {
			header += fmt.Sprintf(" (%d %s)", s.Queries, plural(s.Queries, "query", "queries"))
		}
		if _, err := fmt.Fprintln(w, header); err != nil {
			return err
		}
		for _, line := range s.Lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
