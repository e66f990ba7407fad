package streamxlsx

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Workbook is the streaming XLSX writer. It owns the sink, the ZIP
// streamer, the shared-string table and the sheet list for its whole
// lifetime; rows are compressed and pushed to the sink as they are written,
// so memory stays bounded no matter how large the output grows.
//
// A Workbook is single-threaded: it must be driven by one goroutine.
// Independent workbooks may run concurrently, each with its own sink.
type Workbook struct {
	sink   Sink
	config *Config

	zip *zipStreamer
	sst *sharedStrings

	sheets []*sheetWriter
	active *sheetWriter

	rowBuf  []byte // reusable row-XML buffer
	cellBuf []Cell // scratch for the untyped row API

	totalRows int64
	startTime time.Time

	started bool
	closed  bool
	err     error // first fatal error; all later calls return it
}

// NewWorkbook creates a workbook that streams to sink. The sink is owned by
// the workbook and is closed by Close.
func NewWorkbook(sink Sink, config ...*Config) *Workbook {
	cfg := DefaultConfig()
	if len(config) > 0 && config[0] != nil {
		cfg = config[0]
	}
	return &Workbook{
		sink:   sink,
		config: cfg,
		sst:    newSharedStrings(cfg.InlineStringThreshold, cfg.MaxSharedStrings),
		rowBuf: make([]byte, 0, cfg.RowBufferSize),
	}
}

// guard rejects calls on a finished or failed workbook.
func (w *Workbook) guard() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return fmt.Errorf("%w: workbook already closed", ErrInvalidOperation)
	}
	return nil
}

// start lazily initialises the ZIP stream on the first AddSheet.
func (w *Workbook) start() error {
	if w.started {
		return nil
	}
	zip, err := newZipStreamer(w.sink, w.config.CompressionLevel)
	if err != nil {
		return err
	}
	w.zip = zip
	w.startTime = time.Now()
	if err := zip.add(rootRelsPath, []byte(relsXML)); err != nil {
		w.err = err
		return fmt.Errorf("write %s: %w", rootRelsPath, err)
	}
	w.started = true
	return nil
}

// AddSheet closes the active sheet, if any, and opens a new one with the
// given name. The name must be non-empty, at most 31 characters, and must
// not contain any of : \ / ? * [ ].
func (w *Workbook) AddSheet(name string) error {
	if err := w.guard(); err != nil {
		return err
	}
	if err := validateSheetName(name); err != nil {
		return err
	}
	if err := w.start(); err != nil {
		return err
	}
	if w.active != nil {
		if err := w.active.close(); err != nil {
			w.err = err
			return fmt.Errorf("close sheet %q: %w", w.active.name, err)
		}
	}
	sw, err := newSheetWriter(w.zip, w.sst, name, len(w.sheets)+1)
	if err != nil {
		w.err = err
		return fmt.Errorf("open sheet %q: %w", name, err)
	}
	w.sheets = append(w.sheets, sw)
	w.active = sw
	return nil
}

// activeSheet returns the open sheet or an InvalidOperation error.
func (w *Workbook) activeSheet() (*sheetWriter, error) {
	if w.active == nil {
		return nil, fmt.Errorf("%w: no active sheet, call AddSheet first", ErrInvalidOperation)
	}
	return w.active, nil
}

// WriteRowTyped appends one row of typed cells to the active sheet. Row and
// column indices are assigned densely in call order.
func (w *Workbook) WriteRowTyped(cells []Cell) error {
	if err := w.guard(); err != nil {
		return err
	}
	sw, err := w.activeSheet()
	if err != nil {
		return err
	}
	if sw.rowIndex >= w.config.MaxRowsPerSheet {
		if err := w.rollover(); err != nil {
			return err
		}
		sw = w.active
	}
	buf, err := sw.appendRow(w.rowBuf[:0], cells)
	w.rowBuf = buf[:0]
	if err != nil {
		if errors.Is(err, ErrInvalidValue) || errors.Is(err, ErrInvalidOperation) {
			return err
		}
		w.err = err
		return &WriteRowError{Sheet: sw.name, Row: sw.rowIndex + 1, Err: err}
	}
	if _, err := w.zip.Write(buf); err != nil {
		w.err = err
		return &WriteRowError{Sheet: sw.name, Row: sw.rowIndex, Err: err}
	}
	w.totalRows++
	return nil
}

// WriteRow appends one row of dynamically typed values to the active sheet.
// Strings are routed through the shared-string table, numbers and booleans
// become native cells, time.Time becomes a timestamp, nil leaves a gap, and
// anything else is formatted with fmt.
func (w *Workbook) WriteRow(values []interface{}) error {
	w.cellBuf = w.cellBuf[:0]
	for _, v := range values {
		w.cellBuf = append(w.cellBuf, valueToCell(v))
	}
	return w.WriteRowTyped(w.cellBuf)
}

// WriteRowStyled appends one row with the given style applied to every
// non-empty cell. Useful for header rows.
func (w *Workbook) WriteRowStyled(values []interface{}, style Style) error {
	w.cellBuf = w.cellBuf[:0]
	for _, v := range values {
		c := valueToCell(v)
		if c.Type != CellEmpty {
			c.Style = style
		}
		w.cellBuf = append(w.cellBuf, c)
	}
	return w.WriteRowTyped(w.cellBuf)
}

// WriteRows appends multiple rows to the active sheet.
func (w *Workbook) WriteRows(rows [][]interface{}) error {
	for _, row := range rows {
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

// SetColumnWidth sets the width of the 1-based column range [min, max] on
// the active sheet. Must be called before the sheet's first row.
func (w *Workbook) SetColumnWidth(min, max int, width float64) error {
	if err := w.guard(); err != nil {
		return err
	}
	sw, err := w.activeSheet()
	if err != nil {
		return err
	}
	return sw.setColumnWidth(min, max, width)
}

// SetRowHeight sets the height of the next row written to the active sheet.
func (w *Workbook) SetRowHeight(height float64) error {
	if err := w.guard(); err != nil {
		return err
	}
	sw, err := w.activeSheet()
	if err != nil {
		return err
	}
	return sw.setRowHeight(height)
}

// MergeCell merges the rectangular range between two A1-style corners on
// the active sheet, e.g. MergeCell("A1", "C1").
func (w *Workbook) MergeCell(topLeft, bottomRight string) error {
	if err := w.guard(); err != nil {
		return err
	}
	sw, err := w.activeSheet()
	if err != nil {
		return err
	}
	if topLeft == "" || bottomRight == "" {
		return fmt.Errorf("%w: empty cell reference", ErrInvalidValue)
	}
	return sw.addMerge(topLeft, bottomRight)
}

// ProtectSheet records protection directives for the active sheet.
func (w *Workbook) ProtectSheet(p *SheetProtection) error {
	if err := w.guard(); err != nil {
		return err
	}
	sw, err := w.activeSheet()
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: nil protection", ErrInvalidValue)
	}
	return sw.setProtection(p)
}

// rollover closes the full sheet and opens the next auto-named one.
func (w *Workbook) rollover() error {
	return w.AddSheet(fmt.Sprintf("%s%d", w.config.SheetNamePrefix, len(w.sheets)+1))
}

// Close finishes the workbook: closes the active sheet, emits the shared
// strings, styles and workbook metadata parts, writes the ZIP central
// directory and closes the sink. At least one sheet must have been added.
func (w *Workbook) Close() (*Stats, error) {
	if err := w.guard(); err != nil {
		return nil, err
	}
	if len(w.sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidOperation)
	}
	if err := w.active.close(); err != nil {
		w.err = err
		return nil, fmt.Errorf("close sheet %q: %w", w.active.name, err)
	}
	w.active = nil

	if err := w.writeSharedStrings(); err != nil {
		w.err = err
		return nil, fmt.Errorf("write %s: %w", sharedStringsPath, err)
	}
	parts := []struct {
		name string
		data string
	}{
		{stylesPath, stylesXML},
		{workbookPath, generateWorkbookXML(w.sheetNames())},
		{workbookRelsPath, generateWorkbookRelsXML(len(w.sheets))},
		{contentTypesPath, generateContentTypesXML(len(w.sheets))},
	}
	for _, p := range parts {
		if err := w.zip.add(p.name, []byte(p.data)); err != nil {
			w.err = err
			return nil, fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	if err := w.zip.finish(); err != nil {
		w.err = err
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	if err := w.sink.Close(); err != nil {
		w.err = err
		return nil, fmt.Errorf("close sink: %w", err)
	}
	w.closed = true

	duration := time.Since(w.startTime).Seconds()
	stats := &Stats{
		TotalRows:     w.totalRows,
		TotalSheets:   len(w.sheets),
		SharedStrings: w.sst.uniqueCount(),
		FileSize:      int64(w.zip.offset()),
		Duration:      duration,
	}
	if duration > 0 {
		stats.RowsPerSecond = float64(stats.TotalRows) / duration
		stats.BytesPerSecond = float64(stats.FileSize) / duration
	}
	return stats, nil
}

// writeSharedStrings streams the shared-string part through the ZIP writer
// without materialising it.
func (w *Workbook) writeSharedStrings() error {
	if err := w.zip.begin(sharedStringsPath); err != nil {
		return err
	}
	if err := w.sst.writeTo(w.zip); err != nil {
		return err
	}
	return w.zip.end()
}

func (w *Workbook) sheetNames() []string {
	names := make([]string, len(w.sheets))
	for i, sw := range w.sheets {
		names[i] = sw.name
	}
	return names
}

// valueToCell maps a dynamically typed value onto the closed cell set.
func valueToCell(v interface{}) Cell {
	switch v := v.(type) {
	case nil:
		return Cell{}
	case Cell:
		return v
	case string:
		return String(v)
	case int:
		return Int(int64(v))
	case int8:
		return Int(int64(v))
	case int16:
		return Int(int64(v))
	case int32:
		return Int(int64(v))
	case int64:
		return Int(v)
	case uint:
		return Int(int64(v))
	case uint8:
		return Int(int64(v))
	case uint16:
		return Int(int64(v))
	case uint32:
		return Int(int64(v))
	case uint64:
		if v > math.MaxInt64 {
			return Float(float64(v))
		}
		return Int(int64(v))
	case float32:
		return Float(float64(v))
	case float64:
		return Float(v)
	case bool:
		return Bool(v)
	case time.Time:
		return DateTime(v).WithStyle(StyleDateTimestamp)
	default:
		return String(fmt.Sprintf("%v", v))
	}
}
