package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	telemetry "telemetry-console/internal/telemetry/domain"
	"telemetry-console/internal/telemetry/interfaces/export"
)

func renderFields(w io.Writer, t telemetry.Table, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	case "csv":
		return export.WriteFieldsCSV(w, t)
	case "md", "markdown":
		return renderMarkdown(w, t)
	case "table", "":
		return renderTable(w, t)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func renderTable(w io.Writer, t telemetry.Table) error {
	if len(t.Fields) == 0 {
		_, _ = fmt.Fprintln(w, "(0 fields)")
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	if t.DeviceID != "" {
		tw.SetTitle(t.DeviceID)
	}
	tw.AppendHeader(table.Row{"Group", "Field", "Value"})
	for _, field := range t.Fields {
		tw.AppendRow(table.Row{field.GroupLabel, field.Label, field.Value})
	}
	tw.Render()
	_, _ = fmt.Fprintf(w, "(%d fields)\n", len(t.Fields))
	return nil
}

func renderMarkdown(w io.Writer, t telemetry.Table) error {
	if len(t.Fields) == 0 {
		_, _ = fmt.Fprintln(w, "(0 fields)")
		return nil
	}
	_, _ = fmt.Fprintln(w, "| Group | Field | Value |")
	_, _ = fmt.Fprintln(w, "| --- | --- | --- |")
	for _, field := range t.Fields {
		_, _ = fmt.Fprintf(w, "| %s | %s | %s |\n", field.GroupLabel, field.Label, escapePipe(field.Value))
	}
	return nil
}

func escapePipe(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
