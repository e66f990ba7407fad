package streamxlsx

import (
	"time"
)

// CellType identifies the variant held by a Cell.
type CellType uint8

const (
	CellEmpty CellType = iota
	CellString
	CellInt
	CellFloat
	CellBool
	CellDateTime
	CellError
	CellFormula
)

// Cell is one typed cell value with an optional style. The zero Cell is an
// empty cell, which is omitted from the output (sparse rows).
type Cell struct {
	Type  CellType
	Str   string  // CellString, CellError, CellFormula
	Int   int64   // CellInt
	Float float64 // CellFloat and CellDateTime (serial days)
	Bool  bool    // CellBool
	Style Style
}

// String returns a text cell. Short strings are deduplicated through the
// shared-string table; long ones are embedded inline.
func String(s string) Cell {
	return Cell{Type: CellString, Str: s}
}

// Int returns a numeric cell holding a 64-bit signed integer.
func Int(n int64) Cell {
	return Cell{Type: CellInt, Int: n}
}

// Float returns a numeric cell holding a 64-bit float.
func Float(f float64) Cell {
	return Cell{Type: CellFloat, Float: f}
}

// Bool returns a boolean cell.
func Bool(b bool) Cell {
	return Cell{Type: CellBool, Bool: b}
}

// DateTime returns a date-time cell. The value is stored as serial days
// since 1899-12-30, the spreadsheet epoch; pair it with StyleDateDefault or
// StyleDateTimestamp so consumers render it as a date.
func DateTime(t time.Time) Cell {
	return Cell{Type: CellDateTime, Float: timeToSerial(t)}
}

// ErrorValue returns an error cell holding a token such as "#N/A" or
// "#DIV/0!".
func ErrorValue(token string) Cell {
	return Cell{Type: CellError, Str: token}
}

// Formula returns a formula cell. Only the formula text is written; the
// consumer recalculates the value on open.
func Formula(expr string) Cell {
	return Cell{Type: CellFormula, Str: expr}
}

// Empty returns an explicitly empty cell, useful for skipping a column in a
// typed row.
func Empty() Cell {
	return Cell{}
}

// WithStyle returns a copy of the cell referencing the given style.
func (c Cell) WithStyle(s Style) Cell {
	c.Style = s
	return c
}

var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// timeToSerial converts t to spreadsheet serial days since 1899-12-30.
func timeToSerial(t time.Time) float64 {
	d := t.Sub(serialEpoch)
	return float64(d) / float64(24*time.Hour)
}
