// Package logging writes compile reports and the debug log.
package logging

import (
	"fmt"
	"math"
	"strings"
)

// MissingValue fills cells with nothing to show.
const MissingValue = "-"

// Row is one labelled line of a Table. Cells are already formatted so each
// column can use its own precision.
type Row struct {
	Label string
	Cells []string
	Unit  string // printed after the last cell
	Note  string
}

// Table lays out report rows in aligned columns: labels on the left, cells
// right-aligned under their headers, then an optional unit and note.
type Table struct {
	Headers []string
	Rows    []Row
}

// NewTable creates an empty table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{Headers: headers}
}

// AddRow appends a row. Missing trailing cells render as MissingValue.
func (t *Table) AddRow(label string, cells []string, unit, note string) {
	t.Rows = append(t.Rows, Row{Label: label, Cells: cells, Unit: unit, Note: note})
}

func (t *Table) String() string {
	if len(t.Rows) == 0 {
		return ""
	}

	labelWidth, unitWidth := 0, 0
	notes := false
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		labelWidth = max(labelWidth, len(row.Label))
		unitWidth = max(unitWidth, len(row.Unit))
		notes = notes || row.Note != ""
		for i := range widths {
			widths[i] = max(widths[i], len(t.cell(row, i)))
		}
	}

	var sb strings.Builder
	writeLine := func(label string, cells []string, unit, note string) {
		fmt.Fprintf(&sb, "%-*s  ", labelWidth, label)
		for i, c := range cells {
			fmt.Fprintf(&sb, "%*s  ", widths[i], c)
		}
		if unitWidth > 0 {
			fmt.Fprintf(&sb, "%-*s ", unitWidth, unit)
		}
		if notes {
			sb.WriteString(note)
		}
		sb.WriteString("\n")
	}

	noteHeader := ""
	if notes {
		noteHeader = "Notes"
	}
	writeLine("", t.Headers, "", noteHeader)

	for _, row := range t.Rows {
		cells := make([]string, len(t.Headers))
		for i := range cells {
			cells[i] = t.cell(row, i)
		}
		writeLine(row.Label, cells, row.Unit, row.Note)
	}
	return sb.String()
}

func (t *Table) cell(row Row, i int) string {
	if i < len(row.Cells) && row.Cells[i] != "" {
		return row.Cells[i]
	}
	return MissingValue
}

func formatFloat(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return MissingValue
	}
	return fmt.Sprintf("%.*f", decimals, v)
}

// formatSigned always shows the sign, as gains are read: "+2.5", "-1.2".
func formatSigned(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return MissingValue
	}
	return fmt.Sprintf("%+.*f", decimals, v)
}

func formatWithUnit(v float64, decimals int, unit string) string {
	s := formatFloat(v, decimals)
	if s == MissingValue || unit == "" {
		return s
	}
	return s + " " + unit
}
