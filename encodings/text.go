package encodings

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/drpcorg/kladov/keys"
)

// Byte strings are escaped so that 0x00 can terminate them:
// 0x00 -> 0x01 0x01, 0x01 -> 0x01 0x02, terminator 0x00.
const (
	escTerm = 0x00
	escMark = 0x01
	escZero = 0x01
	escOne  = 0x02
)

func putEscaped(w *keys.Writer, b []byte) {
	for _, c := range b {
		switch c {
		case 0x00:
			w.Put(escMark, escZero)
		case 0x01:
			w.Put(escMark, escOne)
		default:
			w.PutByte(c)
		}
	}
	w.PutByte(escTerm)
}

func readEscaped(r *keys.Reader, out []byte) ([]byte, error) {
	start := r.Offset()
	for {
		c, err := r.ReadByte()
		if err != nil {
			r.Reset(start)
			return nil, err
		}
		switch c {
		case escTerm:
			return out, nil
		case escMark:
			n, err := r.ReadByte()
			if err != nil {
				r.Reset(start)
				return nil, err
			}
			switch n {
			case escZero:
				out = append(out, 0x00)
			case escOne:
				out = append(out, 0x01)
			default:
				r.Reset(start)
				return nil, ErrInvalid
			}
		default:
			out = append(out, c)
		}
	}
}

func skipEscaped(r *keys.Reader) error {
	_, err := readEscaped(r, nil)
	return err
}

type stringEncoding struct{ meta }

var String Of[string] = stringEncoding{meta{id: "string", typeName: "string", width: -1, natural: true, p00: true}}

func (stringEncoding) Read(r *keys.Reader) (string, error) {
	start := r.Offset()
	b, err := readEscaped(r, make([]byte, 0, 16))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		r.Reset(start)
		return "", ErrInvalid
	}
	return string(b), nil
}

func (stringEncoding) Write(w *keys.Writer, v string) error {
	putEscaped(w, []byte(v))
	return nil
}

func (e stringEncoding) Skip(r *keys.Reader) error {
	_, err := e.Read(r)
	return err
}

func (stringEncoding) Compare(a, b string) int { return strings.Compare(a, b) }

func (stringEncoding) Convert(v any) (string, error) {
	switch s := v.(type) {
	case string:
		if !utf8.ValidString(s) {
			return "", invalid("string is not valid UTF-8")
		}
		return s, nil
	case []byte:
		if !utf8.Valid(s) {
			return "", invalid("string is not valid UTF-8")
		}
		return string(s), nil
	}
	return "", invalid("expected string, got %T", v)
}

func (stringEncoding) Default() string { return "" }

func (stringEncoding) Format(v string) string { return strconv.Quote(v) }

func (stringEncoding) Parse(s string) (string, error) {
	v, err := strconv.Unquote(s)
	if err != nil {
		return "", invalid("bad string literal %s", s)
	}
	return v, nil
}

type bytesEncoding struct{ meta }

var Bytes Of[[]byte] = bytesEncoding{meta{id: "bytes", typeName: "[]byte", width: -1, natural: true, p00: true, pFF: true}}

func (bytesEncoding) Read(r *keys.Reader) ([]byte, error) {
	return readEscaped(r, []byte{})
}

func (bytesEncoding) Write(w *keys.Writer, v []byte) error {
	putEscaped(w, v)
	return nil
}

func (bytesEncoding) Skip(r *keys.Reader) error { return skipEscaped(r) }

func (bytesEncoding) Compare(a, b []byte) int { return bytes.Compare(a, b) }

func (bytesEncoding) Convert(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	}
	return nil, invalid("expected []byte, got %T", v)
}

func (bytesEncoding) Default() []byte { return []byte{} }

func (bytesEncoding) Format(v []byte) string { return hex.EncodeToString(v) }

func (bytesEncoding) Parse(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, invalid("bad hex bytes %q", s)
	}
	return b, nil
}
