package fullerene

import (
	"io"
	"os"
)

// NewFileSink wraps an already-open, writable *os.File as a Sink.
func NewFileSink(f *os.File) (Sink, error) {
	return &fileSink{f: f}, nil
}

type fileSink struct{ f *os.File }

func (s *fileSink) ReadAt(p []byte, off int64) (int, error)  { return s.f.ReadAt(p, off) }
func (s *fileSink) WriteAt(p []byte, off int64) (int, error) { return s.f.WriteAt(p, off) }
func (s *fileSink) Seek(offset int64, whence int) (int64, error) {
	return s.f.Seek(offset, whence)
}
func (s *fileSink) Size() (int64, error) {
	info, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Sink is the abstract byte-sink contract the core reads from and writes
// to: random-access writes, absolute seeks, and a length query. ReaderAt
// gives read-after-write access on the same handle; the image writer itself
// only writes, and the FAT32 ESP is formatted in a separate in-memory buffer.
type Sink interface {
	io.ReaderAt
	io.WriterAt
	io.Seeker
	// Size reports the sink's current length in bytes.
	Size() (int64, error)
}

// memSink is an in-memory Sink, returned by NewMemSink and used by tests. It
// grows on demand like a file opened with O_RDWR|O_CREATE.
type memSink struct {
	buf []byte
}

// NewMemSink returns a Sink backed by an in-memory buffer of the given
// initial size (zero-filled).
func NewMemSink(size int64) Sink {
	return &memSink{buf: make([]byte, size)}
}

func (m *memSink) grow(to int64) {
	if int64(len(m.buf)) >= to {
		return
	}
	next := make([]byte, to)
	copy(next, m.buf)
	m.buf = next
}

func (m *memSink) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, io.ErrClosedPipe
	}
	if off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memSink) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, io.ErrClosedPipe
	}
	m.grow(off + int64(len(p)))
	copy(m.buf[off:], p)
	return len(p), nil
}

func (m *memSink) Seek(offset int64, whence int) (int64, error) {
	// memSink has no cursor of its own; every caller in this module
	// addresses it with ReadAt/WriteAt. Seek exists only to satisfy the
	// interface for code paths (e.g. fatfs-style formatters) that expect a
	// stream and is implemented as a no-op successful seek.
	switch whence {
	case io.SeekStart:
		return offset, nil
	case io.SeekCurrent:
		return offset, nil
	case io.SeekEnd:
		return int64(len(m.buf)) + offset, nil
	default:
		return 0, io.ErrUnexpectedEOF
	}
}

func (m *memSink) Size() (int64, error) { return int64(len(m.buf)), nil }

// Bytes returns the current contents of the sink without copying. Tests use
// it to inspect a finished image.
func (m *memSink) Bytes() []byte { return m.buf }
