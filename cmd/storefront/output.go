package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// printer renders command results. Structured formats encode the value
// as is; the table format calls the command's own renderer.
type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) (*printer, error) {
	switch strings.ToLower(format) {
	case formatTable, "":
		return &printer{w: w, format: formatTable}, nil
	case formatJSON:
		return &printer{w: w, format: formatJSON}, nil
	case formatYAML, "yml":
		return &printer{w: w, format: formatYAML}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// structured reports whether output is machine readable.
func (p *printer) structured() bool {
	return p.format != formatTable
}

// print writes v in the selected format. table may be nil for values
// that have no tabular rendering; they fall back to yaml.
func (p *printer) print(v any, table func(t *tabwriter.Writer)) error {
	switch {
	case p.format == formatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case p.format == formatYAML || table == nil:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		t := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
		table(t)
		return t.Flush()
	}
}

// message prints a one-line confirmation in table mode and a small
// object otherwise.
func (p *printer) message(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if p.structured() {
		return p.print(map[string]string{"message": msg}, nil)
	}
	_, err := fmt.Fprintln(p.w, msg)
	return err
}

func row(t io.Writer, cols ...any) {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(t, strings.Join(parts, "\t"))
}
