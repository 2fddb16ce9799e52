package keys

// Reader is a cursor over an encoded key.
type Reader struct {
	buf []byte
	off int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) Remain() int { return len(r.buf) - r.off }

func (r *Reader) Offset() int { return r.off }

// Reset moves the cursor back to a previously observed offset.
func (r *Reader) Reset(off int) { r.off = off }

func (r *Reader) Peek() (byte, error) {
	if r.off >= len(r.buf) {
		return 0, ErrTruncated
	}
	return r.buf[r.off], nil
}

func (r *Reader) ReadByte() (byte, error) {
	if r.off >= len(r.buf) {
		return 0, ErrTruncated
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

// ReadN returns the next n bytes without copying.
func (r *Reader) ReadN(n int) ([]byte, error) {
	if n < 0 || r.Remain() < n {
		return nil, ErrTruncated
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) Skip(n int) error {
	if n < 0 || r.Remain() < n {
		return ErrTruncated
	}
	r.off += n
	return nil
}

// Since returns the bytes consumed after offset start.
func (r *Reader) Since(start int) []byte { return r.buf[start:r.off] }

// Consumed returns every byte read so far.
func (r *Reader) Consumed() []byte { return r.buf[:r.off] }

func (r *Reader) Rest() []byte { return r.buf[r.off:] }

// Writer accumulates an encoded key.
type Writer struct {
	buf []byte
}

func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

func (w *Writer) PutByte(b byte) { w.buf = append(w.buf, b) }

func (w *Writer) Put(p ...byte) { w.buf = append(w.buf, p...) }

func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) Truncate(n int) { w.buf = w.buf[:n] }

func (w *Writer) Bytes() []byte { return w.buf }
