// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// printer writes human output, colored when the writer is a terminal.
type printer struct {
	out       io.Writer
	useColors bool
}

func newPrinter(out io.Writer, noColor bool) *printer {
	return &printer{out: out, useColors: !noColor && !color.NoColor}
}

func (p *printer) line(c color.Attribute, prefix, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.useColors {
		_, _ = color.New(c).Fprintf(p.out, "%s %s\n", prefix, msg)
		return
	}
	_, _ = fmt.Fprintf(p.out, "%s %s\n", prefix, msg)
}

func (p *printer) Success(format string, args ...any) { p.line(color.FgGreen, "[OK]", format, args...) }
func (p *printer) Warning(format string, args ...any) { p.line(color.FgYellow, "[WARN]", format, args...) }
func (p *printer) Error(format string, args ...any)   { p.line(color.FgRed, "[ERROR]", format, args...) }

func (p *printer) Info(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

// JSON writes v indented.
func (p *printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table renders rows under headers without borders.
func (p *printer) Table(headers []string, rows [][]string) error {
	table := tablewriter.NewTable(p.out,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	table.Header(headers)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
