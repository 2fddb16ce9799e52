package keys

// Order preserving unsigned varints: values up to 109 take a single byte
// 0x88+v, larger ones a length byte 0xf6..0xfd followed by big-endian bytes.
// Leading bytes therefore stay within 0x88..0xfd.
const (
	intMin      = 0x80
	intMax      = 0xfd
	intMaxWidth = 8
	intZero     = intMin + intMaxWidth
	intSmall    = intMax - intZero - intMaxWidth
)

func AppendUvarint(b []byte, v uint64) []byte {
	if v <= intSmall {
		return append(b, intZero+byte(v))
	}
	n := 1
	for x := v >> 8; x != 0; x >>= 8 {
		n++
	}
	b = append(b, byte(intMax-intMaxWidth+n))
	for i := n - 1; i >= 0; i-- {
		b = append(b, byte(v>>(8*i)))
	}
	return b
}

func Uvarint(v uint64) []byte {
	return AppendUvarint(make([]byte, 0, 9), v)
}

func UvarintLen(v uint64) int {
	if v <= intSmall {
		return 1
	}
	n := 1
	for x := v >> 8; x != 0; x >>= 8 {
		n++
	}
	return n + 1
}

// ReadUvarint decodes one value, rejecting non-canonical forms so that
// decoding and encoding stay a bijection.
func (r *Reader) ReadUvarint() (uint64, error) {
	start := r.off
	first, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	length := int(first) - intZero
	if length < 0 {
		r.off = start
		return 0, ErrInvalid
	}
	if length <= intSmall {
		return uint64(length), nil
	}
	length -= intSmall
	if length > intMaxWidth {
		r.off = start
		return 0, ErrInvalid
	}
	body, err := r.ReadN(length)
	if err != nil {
		r.off = start
		return 0, err
	}
	var v uint64
	for _, t := range body {
		v = (v << 8) | uint64(t)
	}
	if body[0] == 0 || (length == 1 && v <= intSmall) {
		r.off = start
		return 0, ErrInvalid
	}
	return v, nil
}

func (r *Reader) SkipUvarint() error {
	_, err := r.ReadUvarint()
	return err
}

func (w *Writer) PutUvarint(v uint64) { w.buf = AppendUvarint(w.buf, v) }
