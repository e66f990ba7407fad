package streamxlsx

import (
	"bytes"
)

// BufferSink collects the archive in memory. Useful for tests and for
// handing a finished workbook to an HTTP response writer; note that it
// forfeits the constant-memory property of the streaming sinks.
type BufferSink struct {
	buf bytes.Buffer
}

// NewBufferSink creates an empty in-memory sink.
func NewBufferSink() *BufferSink {
	return &BufferSink{}
}

// Write implements io.Writer interface
func (bs *BufferSink) Write(p []byte) (n int, err error) {
	return bs.buf.Write(p)
}

// Close implements io.Closer interface
func (bs *BufferSink) Close() error {
	return nil
}

// Bytes returns the archive written so far.
func (bs *BufferSink) Bytes() []byte {
	return bs.buf.Bytes()
}

// Len returns the number of bytes written.
func (bs *BufferSink) Len() int {
	return bs.buf.Len()
}
