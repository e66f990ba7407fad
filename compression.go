package streamxlsx

import (
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
)

// deflater compresses the data of one ZIP entry and accumulates the CRC-32
// and uncompressed byte count the entry's data descriptor needs. Level 0
// produces stored deflate blocks, so the ZIP method stays uniform across
// all compression levels.
type deflater struct {
	fw           *flate.Writer
	crc          uint32
	uncompressed uint64
}

func newDeflater(w io.Writer, level int) (*deflater, error) {
	if level < 0 || level > 9 {
		return nil, fmt.Errorf("%w: compression level %d out of range 0-9", ErrInvalidValue, level)
	}
	fw, err := flate.NewWriter(w, level)
	if err != nil {
		return nil, fmt.Errorf("create deflate writer: %w", err)
	}
	return &deflater{fw: fw}, nil
}

// Write compresses p, updating the running CRC-32 and byte count over the
// uncompressed input.
func (d *deflater) Write(p []byte) (int, error) {
	n, err := d.fw.Write(p)
	d.crc = crc32.Update(d.crc, crc32.IEEETable, p[:n])
	d.uncompressed += uint64(n)
	return n, err
}

// Close flushes the deflate stream for the current entry. The deflater may
// be Reset and reused afterwards.
func (d *deflater) Close() error {
	return d.fw.Close()
}

// Reset prepares the deflater for the next entry, writing to w.
func (d *deflater) Reset(w io.Writer) {
	d.fw.Reset(w)
	d.crc = 0
	d.uncompressed = 0
}
