package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// printer renders command results as a table or as json/yaml documents
type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) *printer {
	if format == "" {
		format = "table"
	}
	return &printer{w: w, format: format}
}

// structured reports whether results are machine readable
func (p *printer) structured() bool {
	return p.format == "json" || p.format == "yaml"
}

func (p *printer) encode(v interface{}) error {
	switch p.format {
	case "json":
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported output format %q", p.format)
}

// print writes v as json/yaml, or calls fill to build a table
func (p *printer) print(v interface{}, header []string, fill func(t *tablewriter.Table)) error {
	if p.structured() {
		return p.encode(v)
	}

	table := tablewriter.NewWriter(p.w)
	table.Header(toAny(header)...)
	fill(table)
	return table.Render()
}

// fields renders label/value pairs for a single record
func (p *printer) fields(v interface{}, rows [][2]string) error {
	return p.print(v, []string{"Field", "Value"}, func(t *tablewriter.Table) {
		for _, row := range rows {
			_ = t.Append(row[0], row[1])
		}
	})
}

// result writes v for structured formats and a one-line message otherwise
func (p *printer) result(v interface{}, format string, args ...interface{}) error {
	if p.structured() {
		return p.encode(v)
	}
	p.line(format, args...)
	return nil
}

// line writes human-readable text; suppressed for structured formats
func (p *printer) line(format string, args ...interface{}) {
	if p.structured() {
		return
	}
	fmt.Fprintf(p.w, format+"\n", args...)
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}

// maskKey hides all but the last four characters of a secret
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
