package streamxlsx

import (
	"bufio"
	"fmt"
	"os"
)

// FileSink writes data to a local file through a buffer, so the many small
// writes a worksheet produces do not each become a syscall.
type FileSink struct {
	file *os.File
	buf  *bufio.Writer
	path string
}

const fileSinkBufferSize = 64 * 1024

// NewFileSink creates a new FileSink that writes to the specified file path
func NewFileSink(path string) (*FileSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &FileSink{
		file: file,
		buf:  bufio.NewWriterSize(file, fileSinkBufferSize),
		path: path,
	}, nil
}

// Write implements io.Writer interface
func (fs *FileSink) Write(p []byte) (n int, err error) {
	return fs.buf.Write(p)
}

// Close flushes the buffer and closes the file.
func (fs *FileSink) Close() error {
	if fs.file == nil {
		return nil
	}
	if err := fs.buf.Flush(); err != nil {
		fs.file.Close()
		return fmt.Errorf("flush %s: %w", fs.path, err)
	}
	return fs.file.Close()
}

// Path returns the file path
func (fs *FileSink) Path() string {
	return fs.path
}
