package streamxlsx

import (
	"encoding/binary"
	"fmt"
)

// ZIP framing constants.
const (
	fileHeaderSignature      = 0x04034b50
	dataDescriptorSignature  = 0x08074b50
	directoryHeaderSignature = 0x02014b50
	directoryEndSignature    = 0x06054b50

	fileHeaderLen      = 30
	dataDescriptorLen  = 16
	directoryHeaderLen = 46
	directoryEndLen    = 22

	zipVersion20 = 20 // version needed for deflate + data descriptors

	flagDataDescriptor = 0x8 // general-purpose bit 3
	methodDeflate      = 8
)

// zipEntry is the central-directory record for one finished archive member.
type zipEntry struct {
	name             string
	crc32            uint32
	compressedSize   uint64
	uncompressedSize uint64
	offset           uint64
}

// offsetWriter forwards to the sink and tracks the total bytes written.
// Every offset the ZIP format needs is derived from this counter, so the
// sink is never asked to seek.
type offsetWriter struct {
	sink   Sink
	offset uint64
}

func (w *offsetWriter) Write(p []byte) (int, error) {
	n, err := w.sink.Write(p)
	w.offset += uint64(n)
	return n, err
}

// zipStreamer writes a ZIP archive to an append-only sink one entry at a
// time. Local file headers are written with general-purpose bit 3 set, so
// CRC-32 and sizes go into a data descriptor after the compressed payload
// instead of being patched into the header. That is what makes single-pass
// streaming possible.
type zipStreamer struct {
	out     *offsetWriter
	comp    *deflater
	entries []zipEntry

	entryName  string // name of the open entry, "" if none
	dataOffset uint64 // archive offset where the open entry's data began
	hdrOffset  uint64 // archive offset of the open entry's local header

	err error // first fatal error; sticky
}

func newZipStreamer(sink Sink, level int) (*zipStreamer, error) {
	out := &offsetWriter{sink: sink}
	comp, err := newDeflater(out, level)
	if err != nil {
		return nil, err
	}
	return &zipStreamer{out: out, comp: comp}, nil
}

// offset returns the total bytes emitted to the sink so far.
func (z *zipStreamer) offset() uint64 {
	return z.out.offset
}

// begin opens a new archive member. Only one member may be open at a time.
func (z *zipStreamer) begin(name string) error {
	if z.err != nil {
		return z.err
	}
	if z.entryName != "" {
		return fmt.Errorf("%w: entry %q still open", ErrInvalidOperation, z.entryName)
	}
	z.hdrOffset = z.out.offset
	if err := z.writeLocalHeader(name); err != nil {
		z.err = fmt.Errorf("entry %q: write local header: %w", name, err)
		return z.err
	}
	z.entryName = name
	z.dataOffset = z.out.offset
	z.comp.Reset(z.out)
	return nil
}

// Write feeds uncompressed data to the open entry. Compressed bytes are
// pushed to the sink as the deflate stream produces them.
func (z *zipStreamer) Write(p []byte) (int, error) {
	if z.err != nil {
		return 0, z.err
	}
	if z.entryName == "" {
		return 0, fmt.Errorf("%w: no open zip entry", ErrInvalidOperation)
	}
	n, err := z.comp.Write(p)
	if err != nil {
		z.err = fmt.Errorf("entry %q: %w", z.entryName, err)
		return n, z.err
	}
	return n, nil
}

// end flushes the open entry, writes its data descriptor and records it for
// the central directory.
func (z *zipStreamer) end() error {
	if z.err != nil {
		return z.err
	}
	if z.entryName == "" {
		return fmt.Errorf("%w: no open zip entry", ErrInvalidOperation)
	}
	if err := z.comp.Close(); err != nil {
		z.err = fmt.Errorf("entry %q: flush deflate: %w", z.entryName, err)
		return z.err
	}
	entry := zipEntry{
		name:             z.entryName,
		crc32:            z.comp.crc,
		compressedSize:   z.out.offset - z.dataOffset,
		uncompressedSize: z.comp.uncompressed,
		offset:           z.hdrOffset,
	}
	if err := z.writeDataDescriptor(&entry); err != nil {
		z.err = fmt.Errorf("entry %q: write data descriptor: %w", z.entryName, err)
		return z.err
	}
	z.entries = append(z.entries, entry)
	z.entryName = ""
	return nil
}

// add writes a complete small member in one call.
func (z *zipStreamer) add(name string, data []byte) error {
	if err := z.begin(name); err != nil {
		return err
	}
	if _, err := z.Write(data); err != nil {
		return err
	}
	return z.end()
}

// finish writes the central directory and the end-of-central-directory
// record. No members may be open or added afterwards.
func (z *zipStreamer) finish() error {
	if z.err != nil {
		return z.err
	}
	if z.entryName != "" {
		return fmt.Errorf("%w: entry %q still open", ErrInvalidOperation, z.entryName)
	}
	dirStart := z.out.offset
	for i := range z.entries {
		if err := z.writeDirectoryHeader(&z.entries[i]); err != nil {
			z.err = fmt.Errorf("central directory entry %q: %w", z.entries[i].name, err)
			return z.err
		}
	}
	dirSize := z.out.offset - dirStart
	if err := z.writeDirectoryEnd(dirStart, dirSize); err != nil {
		z.err = fmt.Errorf("end of central directory: %w", err)
		return z.err
	}
	return nil
}

func (z *zipStreamer) writeLocalHeader(name string) error {
	var buf [fileHeaderLen]byte
	b := writeBuf(buf[:])
	b.uint32(fileHeaderSignature)
	b.uint16(zipVersion20)
	b.uint16(flagDataDescriptor)
	b.uint16(methodDeflate)
	b.uint16(0) // modification time
	b.uint16(0) // modification date
	b.uint32(0) // crc-32, in the data descriptor instead
	b.uint32(0) // compressed size, likewise
	b.uint32(0) // uncompressed size, likewise
	b.uint16(uint16(len(name)))
	b.uint16(0) // extra field length
	if _, err := z.out.Write(buf[:]); err != nil {
		return err
	}
	_, err := z.out.Write([]byte(name))
	return err
}

func (z *zipStreamer) writeDataDescriptor(e *zipEntry) error {
	var buf [dataDescriptorLen]byte
	b := writeBuf(buf[:])
	b.uint32(dataDescriptorSignature)
	b.uint32(e.crc32)
	b.uint32(uint32(e.compressedSize))
	b.uint32(uint32(e.uncompressedSize))
	_, err := z.out.Write(buf[:])
	return err
}

func (z *zipStreamer) writeDirectoryHeader(e *zipEntry) error {
	var buf [directoryHeaderLen]byte
	b := writeBuf(buf[:])
	b.uint32(directoryHeaderSignature)
	b.uint16(zipVersion20) // version made by
	b.uint16(zipVersion20) // version needed to extract
	b.uint16(flagDataDescriptor)
	b.uint16(methodDeflate)
	b.uint16(0) // modification time
	b.uint16(0) // modification date
	b.uint32(e.crc32)
	b.uint32(uint32(e.compressedSize))
	b.uint32(uint32(e.uncompressedSize))
	b.uint16(uint16(len(e.name)))
	b.uint16(0) // extra field length
	b.uint16(0) // comment length
	b.uint16(0) // disk number start
	b.uint16(0) // internal file attributes
	b.uint32(0) // external file attributes
	b.uint32(uint32(e.offset))
	if _, err := z.out.Write(buf[:]); err != nil {
		return err
	}
	_, err := z.out.Write([]byte(e.name))
	return err
}

func (z *zipStreamer) writeDirectoryEnd(dirStart, dirSize uint64) error {
	var buf [directoryEndLen]byte
	b := writeBuf(buf[:])
	b.uint32(directoryEndSignature)
	b.uint16(0) // number of this disk
	b.uint16(0) // disk with the start of the central directory
	b.uint16(uint16(len(z.entries)))
	b.uint16(uint16(len(z.entries)))
	b.uint32(uint32(dirSize))
	b.uint32(uint32(dirStart))
	b.uint16(0) // comment length
	_, err := z.out.Write(buf[:])
	return err
}

// writeBuf fills a fixed little-endian header buffer field by field.
type writeBuf []byte

func (b *writeBuf) uint16(v uint16) {
	binary.LittleEndian.PutUint16(*b, v)
	*b = (*b)[2:]
}

func (b *writeBuf) uint32(v uint32) {
	binary.LittleEndian.PutUint32(*b, v)
	*b = (*b)[4:]
}
