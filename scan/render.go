package scan

import (
	"fmt"
	"io"
)

// TimeFormat is the layout of message times in rendered views
const TimeFormat = "2006-01-02 15:04:05.000"

// Render prints the result in ascending offset order, one message per line,
// followed by the records that could not be decoded
func Render(w io.Writer, res Result) error {
	entries := res.View.Entries()
	if len(entries) == 0 {
		if _, err := fmt.Fprintln(w, "no messages found"); err != nil {
			return err
		}
	}
	for _, e := range entries {
		line := fmt.Sprintf("[%d] %s %s: %s", e.Offset, e.Time.Format(TimeFormat), e.Username, e.Text)
		if e.ReplacedBy != nil {
			line += fmt.Sprintf(" (replaced by offset %d)", *e.ReplacedBy)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	for _, f := range res.Failures {
		if _, err := fmt.Fprintf(w, "[%d] undecodable: %v\n", f.Offset, f.Err); err != nil {
			return err
		}
	}
	return nil
}
