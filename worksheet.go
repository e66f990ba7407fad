package streamxlsx

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// sheetState tracks where a worksheet part is in its lifecycle.
type sheetState uint8

const (
	sheetPrologue sheetState = iota // <worksheet> written, <sheetData> not yet open
	sheetRowsOpen
	sheetClosed
)

// colWidth is one recorded <col> range, written before the sheet data.
type colWidth struct {
	min   int
	max   int
	width float64
}

// sheetWriter encodes one worksheet part. Column widths and protection must
// be recorded before the first row because their elements precede or depend
// on the sheet data in the part; merges accumulate until the sheet closes.
type sheetWriter struct {
	name    string
	ordinal int // 1-based position in the workbook
	state   sheetState

	rowIndex int // rows written so far

	widths     []colWidth
	merges     []string
	protection *SheetProtection

	nextRowHeight float64
	hasRowHeight  bool

	zip *zipStreamer
	sst *sharedStrings
}

// newSheetWriter begins the sheet's ZIP entry and writes the worksheet
// prologue. The <sheetData> element stays unopened until the first row so
// that column widths can still be recorded.
func newSheetWriter(zip *zipStreamer, sst *sharedStrings, name string, ordinal int) (*sheetWriter, error) {
	if err := zip.begin(sheetPath(ordinal)); err != nil {
		return nil, err
	}
	sw := &sheetWriter{
		name:    name,
		ordinal: ordinal,
		zip:     zip,
		sst:     sst,
	}
	_, err := zip.Write([]byte(xmlProlog + `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">`))
	if err != nil {
		return nil, err
	}
	return sw, nil
}

// setColumnWidth records a width for the 1-based column range [min, max].
func (sw *sheetWriter) setColumnWidth(min, max int, width float64) error {
	if sw.state != sheetPrologue {
		return fmt.Errorf("%w: column widths must be set before the first row", ErrInvalidOperation)
	}
	if min < 1 || max > maxColumns || min > max {
		return fmt.Errorf("%w: column range %d-%d", ErrInvalidValue, min, max)
	}
	if width <= 0 {
		return fmt.Errorf("%w: column width %v", ErrInvalidValue, width)
	}
	sw.widths = append(sw.widths, colWidth{min: min, max: max, width: width})
	return nil
}

// setProtection records the sheet's protection directives.
func (sw *sheetWriter) setProtection(p *SheetProtection) error {
	if sw.state == sheetClosed {
		return fmt.Errorf("%w: sheet %q already closed", ErrInvalidOperation, sw.name)
	}
	sw.protection = p
	return nil
}

// setRowHeight records a height consumed by the next row written.
func (sw *sheetWriter) setRowHeight(height float64) error {
	if height <= 0 {
		return fmt.Errorf("%w: row height %v", ErrInvalidValue, height)
	}
	sw.nextRowHeight = height
	sw.hasRowHeight = true
	return nil
}

// addMerge records an A1:B2-style merged range, emitted on sheet close.
func (sw *sheetWriter) addMerge(topLeft, bottomRight string) error {
	if sw.state == sheetClosed {
		return fmt.Errorf("%w: sheet %q already closed", ErrInvalidOperation, sw.name)
	}
	sw.merges = append(sw.merges, topLeft+":"+bottomRight)
	return nil
}

// openRows transitions the sheet into row writing: emits the recorded
// column widths and opens <sheetData>.
func (sw *sheetWriter) openRows() error {
	var buf []byte
	if len(sw.widths) > 0 {
		buf = append(buf, `<cols>`...)
		for _, cw := range sw.widths {
			buf = append(buf, `<col min="`...)
			buf = strconv.AppendInt(buf, int64(cw.min), 10)
			buf = append(buf, `" max="`...)
			buf = strconv.AppendInt(buf, int64(cw.max), 10)
			buf = append(buf, `" width="`...)
			buf = strconv.AppendFloat(buf, cw.width, 'g', -1, 64)
			buf = append(buf, `" customWidth="1"/>`...)
		}
		buf = append(buf, `</cols>`...)
	}
	buf = append(buf, `<sheetData>`...)
	if _, err := sw.zip.Write(buf); err != nil {
		return err
	}
	sw.state = sheetRowsOpen
	return nil
}

// appendRow validates cells and encodes the row into buf, returning the
// grown buffer. Nothing reaches the sink until the caller hands the buffer
// to the ZIP writer, so validation failures leave the archive untouched.
func (sw *sheetWriter) appendRow(buf []byte, cells []Cell) ([]byte, error) {
	if sw.state == sheetClosed {
		return buf, fmt.Errorf("%w: sheet %q already closed", ErrInvalidOperation, sw.name)
	}
	if sw.rowIndex >= maxRows {
		return buf, fmt.Errorf("%w: sheet %q already holds %d rows", ErrInvalidValue, sw.name, maxRows)
	}
	if len(cells) > maxColumns {
		return buf, fmt.Errorf("%w: %d cells exceeds %d columns", ErrInvalidValue, len(cells), maxColumns)
	}
	for i := range cells {
		if err := validateCell(&cells[i]); err != nil {
			return buf, fmt.Errorf("column %s: %w", columnName(i), err)
		}
	}
	if sw.state == sheetPrologue {
		if err := sw.openRows(); err != nil {
			return buf, err
		}
	}

	row := sw.rowIndex // zero-based
	buf = append(buf, `<row r="`...)
	buf = strconv.AppendInt(buf, int64(row)+1, 10)
	if sw.hasRowHeight {
		buf = append(buf, `" ht="`...)
		buf = strconv.AppendFloat(buf, sw.nextRowHeight, 'g', -1, 64)
		buf = append(buf, `" customHeight="1`...)
		sw.hasRowHeight = false
	}
	buf = append(buf, `">`...)
	for col := range cells {
		buf = sw.appendCell(buf, &cells[col], row, col)
	}
	buf = append(buf, `</row>`...)
	sw.rowIndex++
	return buf, nil
}

// appendCell encodes one cell. Empty cells are omitted entirely; the row
// stays sparse and consumers fill the gap.
func (sw *sheetWriter) appendCell(buf []byte, c *Cell, row, col int) []byte {
	if c.Type == CellEmpty {
		return buf
	}
	sstIndex := -1
	if c.Type == CellString {
		sstIndex = sw.sst.lookup(c.Str)
	}

	buf = append(buf, `<c r="`...)
	buf = appendCellRef(buf, row, col)
	switch {
	case c.Type == CellBool:
		buf = append(buf, `" t="b`...)
	case c.Type == CellError:
		buf = append(buf, `" t="e`...)
	case sstIndex >= 0:
		buf = append(buf, `" t="s`...)
	case c.Type == CellString:
		buf = append(buf, `" t="inlineStr`...)
	}
	buf = append(buf, '"')
	if c.Style != StyleDefault {
		buf = append(buf, ` s="`...)
		buf = strconv.AppendInt(buf, int64(c.Style), 10)
		buf = append(buf, '"')
	}
	buf = append(buf, '>')

	switch c.Type {
	case CellInt:
		buf = append(buf, `<v>`...)
		buf = strconv.AppendInt(buf, c.Int, 10)
		buf = append(buf, `</v>`...)
	case CellFloat, CellDateTime:
		buf = append(buf, `<v>`...)
		buf = strconv.AppendFloat(buf, c.Float, 'G', -1, 64)
		buf = append(buf, `</v>`...)
	case CellBool:
		if c.Bool {
			buf = append(buf, `<v>1</v>`...)
		} else {
			buf = append(buf, `<v>0</v>`...)
		}
	case CellError:
		buf = append(buf, `<v>`...)
		buf = appendEscaped(buf, c.Str)
		buf = append(buf, `</v>`...)
	case CellFormula:
		buf = append(buf, `<f>`...)
		buf = appendEscaped(buf, c.Str)
		buf = append(buf, `</f>`...)
	case CellString:
		if sstIndex >= 0 {
			buf = append(buf, `<v>`...)
			buf = strconv.AppendInt(buf, int64(sstIndex), 10)
			buf = append(buf, `</v>`...)
		} else {
			buf = append(buf, `<is><t xml:space="preserve">`...)
			buf = appendEscaped(buf, c.Str)
			buf = append(buf, `</t></is>`...)
		}
	}
	buf = append(buf, `</c>`...)
	return buf
}

// close finishes the worksheet part: closes <sheetData>, emits protection
// and merged ranges in schema order and ends the ZIP entry. Closing an
// already-closed sheet is a no-op.
func (sw *sheetWriter) close() error {
	if sw.state == sheetClosed {
		return nil
	}
	if sw.state == sheetPrologue {
		if err := sw.openRows(); err != nil {
			return err
		}
	}
	var buf []byte
	buf = append(buf, `</sheetData>`...)
	if sw.protection != nil {
		buf = appendProtection(buf, sw.protection)
	}
	if len(sw.merges) > 0 {
		buf = append(buf, `<mergeCells count="`...)
		buf = strconv.AppendInt(buf, int64(len(sw.merges)), 10)
		buf = append(buf, `">`...)
		for _, ref := range sw.merges {
			buf = append(buf, `<mergeCell ref="`...)
			buf = append(buf, ref...)
			buf = append(buf, `"/>`...)
		}
		buf = append(buf, `</mergeCells>`...)
	}
	buf = append(buf, `</worksheet>`...)
	if _, err := sw.zip.Write(buf); err != nil {
		return err
	}
	if err := sw.zip.end(); err != nil {
		return err
	}
	sw.state = sheetClosed
	return nil
}

// validateCell rejects out-of-range values before any bytes are emitted.
func validateCell(c *Cell) error {
	if c.Style < StyleDefault || c.Style >= styleCount {
		return fmt.Errorf("%w: style %d", ErrInvalidValue, c.Style)
	}
	switch c.Type {
	case CellString, CellError, CellFormula:
		if !utf8.ValidString(c.Str) {
			return fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidValue)
		}
	case CellEmpty, CellInt, CellFloat, CellBool, CellDateTime:
	default:
		return fmt.Errorf("%w: unknown cell type %d", ErrInvalidValue, c.Type)
	}
	return nil
}

// appendProtection emits the sheetProtection element. Allowed actions are
// written as zeroed lock attributes; the format locks everything else by
// default once sheet="1" is set.
func appendProtection(buf []byte, p *SheetProtection) []byte {
	buf = append(buf, `<sheetProtection`...)
	if p.Password != "" {
		buf = fmt.Appendf(buf, ` password="%04X"`, legacyPasswordHash(p.Password))
	}
	buf = append(buf, ` sheet="1" objects="1" scenarios="1"`...)
	allowed := []struct {
		attr string
		on   bool
	}{
		{"formatCells", p.AllowFormatCells},
		{"formatColumns", p.AllowFormatColumns},
		{"formatRows", p.AllowFormatRows},
		{"insertColumns", p.AllowInsertColumns},
		{"insertRows", p.AllowInsertRows},
		{"deleteColumns", p.AllowDeleteColumns},
		{"deleteRows", p.AllowDeleteRows},
		{"sort", p.AllowSort},
		{"autoFilter", p.AllowAutoFilter},
	}
	for _, a := range allowed {
		if a.on {
			buf = append(buf, ' ')
			buf = append(buf, a.attr...)
			buf = append(buf, `="0"`...)
		}
	}
	buf = append(buf, `/>`...)
	return buf
}
