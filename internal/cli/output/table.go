package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Table is a header row plus data rows.
type Table struct {
	Headers []string
	Rows    [][]string
}

// AddRow appends a row, formatting each cell with %v.
func (t *Table) AddRow(cells ...any) {
	row := make([]string, len(cells))
	for i, c := range cells {
		row[i] = cellString(c)
	}
	t.Rows = append(t.Rows, row)
}

// Render writes the table with aligned columns.
func (t *Table) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// TableFormatter renders Tabular values and tables. Anything else falls
// back to YAML.
type TableFormatter struct{}

// Format implements Formatter.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case nil:
		return nil
	case *Table:
		return v.Render(w)
	case Tabular:
		return v.Table().Render(w)
	default:
		return (&YAMLFormatter{}).Format(w, data)
	}
}

func cellString(v any) string {
	switch c := v.(type) {
	case nil:
		return "-"
	case string:
		if c == "" {
			return "-"
		}
		return c
	case bool:
		if c {
			return "yes"
		}
		return "no"
	default:
		return fmt.Sprint(c)
	}
}
