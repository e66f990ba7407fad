package streamxlsx

import (
	"io"
)

// Sink is the interface that wraps basic Write and Close methods for streaming data.
// Implementations can write to local files, S3, or any other append-only destination.
// The workbook never seeks: every byte is written exactly once, in order.
type Sink interface {
	io.Writer
	io.Closer
}

// Stats contains statistics about the written XLSX file
type Stats struct {
	TotalRows      int64   // Total number of data rows written
	TotalSheets    int     // Total number of sheets created
	SharedStrings  int     // Unique strings deduplicated into the shared-string table
	FileSize       int64   // Total file size in bytes
	Duration       float64 // Total duration in seconds
	RowsPerSecond  float64 // Average rows per second
	BytesPerSecond float64 // Average bytes per second
}

// Config holds configuration for the workbook
type Config struct {
	// CompressionLevel sets the deflate compression level (0-9, default: 6)
	// 0 = no compression, 9 = maximum compression
	CompressionLevel int

	// RowBufferSize sets the initial capacity of the reusable row-XML buffer
	// in bytes (default: 8KB). The buffer grows to fit the largest row and is
	// then reused; it is the only row-scoped buffer the writer keeps.
	RowBufferSize int

	// MaxRowsPerSheet sets the maximum rows per sheet (default: 1048576)
	// When this limit is reached, a new sheet is automatically created
	MaxRowsPerSheet int

	// SheetNamePrefix is the prefix for auto-generated sheet names (default: "Sheet")
	SheetNamePrefix string

	// InlineStringThreshold is the length in bytes above which a string is
	// embedded inline in the worksheet instead of being deduplicated through
	// the shared-string table (default: 50). Long strings are rarely
	// repeated, so deduplicating them costs memory for no gain.
	InlineStringThreshold int

	// MaxSharedStrings caps the number of unique strings held by the
	// shared-string table (default: 100000). Once the cap is reached, new
	// strings are embedded inline; strings already in the table keep
	// resolving to their index. This bounds memory on adversarial input.
	MaxSharedStrings int
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		CompressionLevel:      6,
		RowBufferSize:         8 * 1024,
		MaxRowsPerSheet:       maxRows,
		SheetNamePrefix:       "Sheet",
		InlineStringThreshold: 50,
		MaxSharedStrings:      100000,
	}
}
