// Package report renders plain-text diagnostic dumps of every queried
// vendor field and its raw status. The output is for support and
// debugging, not a structured API.
package report

import (
	"fmt"
	"io"
	"strings"
)

// Field is one labeled line of a diagnostic report.
type Field struct {
	Label  string
	Status string
	Value  string
}

// Reporter is implemented by devices that can dump their raw query
// results.
type Reporter interface {
	Diagnostics() []Field
}

// Write renders one device section: a title followed by one labeled line
// per field.
func Write(w io.Writer, title string, fields []Field) error {
	if _, err := fmt.Fprintf(w, "%s\n%s\n", title, strings.Repeat("-", len(title))); err != nil {
		return err
	}

	for _, f := range fields {
		line := fmt.Sprintf("%-32s %s", f.Label+":", f.Status)
		if f.Value != "" {
			line += " " + f.Value
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w)

	return err
}
