package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/yourorg/wealthtracker/internal/format"
	"github.com/yourorg/wealthtracker/internal/scanner"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#858392"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// newTable builds a bordered table; right lists the numeric column indexes.
func newTable(headers []string, right ...int) *table.Table {
	align := make(map[int]bool, len(right))
	for _, i := range right {
		align[i] = true
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := cellStyle
			if row == table.HeaderRow {
				s = s.Inherit(headerStyle)
			}
			if align[col] {
				s = s.Align(lipgloss.Right)
			}
			return s
		})
}

func printTable(w io.Writer, t *table.Table) {
	fmt.Fprintln(w, t.String())
}

// scannerCell renders one scanner value according to its column kind.
func scannerCell(c scanner.Column, r scanner.Row) string {
	v := c.Value(r)
	if v == nil {
		return format.Missing
	}
	n, isNum := v.(float64)
	if !isNum {
		return fmt.Sprint(v)
	}
	switch c.Kind {
	case scanner.KindPrice:
		return format.USD(n)
	case scanner.KindPercent:
		return format.Percent(n)
	case scanner.KindRatio:
		return format.Multiple(n)
	case scanner.KindVolume:
		return format.Compact(n)
	}
	return format.Quantity(n)
}

func renderScannerPage(w io.Writer, def scanner.Definition, page scanner.Page, sort scanner.Sort) {
	headers := make([]string, len(def.Columns))
	var right []int
	for i, c := range def.Columns {
		headers[i] = c.Header
		if c.Key == sort.Key {
			arrow := "↓"
			if sort.Direction == scanner.Asc {
				arrow = "↑"
			}
			headers[i] += " " + arrow
		}
		if c.RightAligned() {
			right = append(right, i)
		}
	}
	t := newTable(headers, right...)
	for _, r := range page.Rows {
		cells := make([]string, len(def.Columns))
		for i, c := range def.Columns {
			cells[i] = scannerCell(c, r)
		}
		t.Row(cells...)
	}
	fmt.Fprintln(w, headerStyle.Render(def.Title)+"  "+mutedStyle.Render(def.Description))
	printTable(w, t)
	if page.TotalRows == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No results"))
		return
	}
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("Showing %d-%d of %d · page %d/%d",
		page.First(), page.Last(), page.TotalRows, page.Index+1, page.TotalPages)))
}
