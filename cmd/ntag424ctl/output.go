package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func tableStyle() table.Style {
	style := table.StyleRounded
	style.Color.Header = text.Colors{text.FgCyan, text.Bold}
	style.Options.SeparateRows = false
	return style
}

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(tableStyle())
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

func printKV(title string, rows [][2]string) {
	t := newTable(title)
	t.AppendHeader(table.Row{"Field", "Value"})
	for _, r := range rows {
		t.AppendRow(table.Row{r[0], r[1]})
	}
	t.Render()
}

func hexStr(b []byte) string {
	return hex.EncodeToString(b)
}

func headerRow(cols ...string) table.Row {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	return row
}

func dataRow(cols ...string) table.Row {
	return headerRow(cols...)
}

func printSuccess(format string, args ...any) {
	fmt.Println(text.Colors{text.FgGreen}.Sprintf("✓ "+format, args...))
}

func printError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, text.Colors{text.FgRed}.Sprintf("✗ "+format, args...))
}
