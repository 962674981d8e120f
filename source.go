package fullerene

import "io"

// Source is a caller-supplied byte stream with a known length: a file
// already opened for random-access reads, or any in-memory buffer wrapped
// with NewByteSource.
type Source interface {
	io.ReaderAt
	Size() (int64, error)
}

type byteSource struct{ b []byte }

// NewByteSource wraps an in-memory buffer as a Source.
func NewByteSource(b []byte) Source { return &byteSource{b: b} }

func (s *byteSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(s.b)) {
		return 0, io.EOF
	}
	n := copy(p, s.b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *byteSource) Size() (int64, error) { return int64(len(s.b)), nil }

type sizedFile struct {
	io.ReaderAt
	size int64
}

// NewSource wraps an io.ReaderAt whose length is already known (e.g. from
// os.File.Stat) as a Source.
func NewSource(r io.ReaderAt, size int64) Source {
	return &sizedFile{ReaderAt: r, size: size}
}

func (s *sizedFile) Size() (int64, error) { return s.size, nil }
