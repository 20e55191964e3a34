// Package report presents a benchmark summary.
package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/violenttestpen/mtime/internal/stats"
)

// Format is an output format for the summary.
type Format string

const (
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTable, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table or yaml)", s)
	}
}

// Render writes s to w in the given format.
func Render(w io.Writer, s stats.Summary, format Format) error {
	switch format {
	case FormatYAML:
		return renderYAML(w, s)
	case FormatTable:
		renderTable(w, s)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderTable(w io.Writer, s stats.Summary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"", "Mean", "Std.Dev.", "Min", "Median", "Max"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	table.Append(channelRow("real", s.Wall))
	table.Append(channelRow("user", s.User))
	table.Append(channelRow("sys", s.Sys))
	table.Render()

	if s.Failed > 0 {
		fmt.Fprintln(w, color.YellowString("%d of %d runs exited with a non-zero status", s.Failed, s.Runs))
	}
}

func channelRow(name string, c stats.ChannelSummary) []string {
	return []string{
		name,
		fmt.Sprintf("%.3f", c.Mean),
		fmt.Sprintf("%.3f", c.StdDev),
		fmt.Sprintf("%.3f", c.Min),
		fmt.Sprintf("%.3f", c.Median),
		fmt.Sprintf("%.3f", c.Max),
	}
}

func renderYAML(w io.Writer, s stats.Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	return enc.Close()
}
