// Package canonical implements the deterministic JSON encoding that every
// AIRC signature is computed over.
//
// All SDK hashing and signing MUST pass through Encode. Two structurally
// equal maps encode to byte-identical output regardless of insertion order;
// the registry re-derives the same bytes on its side, so any deviation here
// is a signature verification failure, not a style choice.
//
// The value domain is closed: strings, integers, and nested maps. Floats and
// every other type are rejected at compile time by the Value interface.
package canonical

import (
	"bytes"
	"sort"
	"strconv"
	"unicode/utf16"

	"github.com/brightseth/airc-go/airc"
)

// Value is the closed set of payload value types.
//
// Only String, Int, and Map implement it. The unexported method keeps the
// encoder's input domain statically enforced.
type Value interface {
	canonicalValue()
}

// String is a JSON string value.
type String string

// Int is a JSON integer value. AIRC payloads never carry floats.
type Int int64

// Map is a JSON object with string keys. Insertion order is irrelevant.
type Map map[string]Value

func (String) canonicalValue() {}
func (Int) canonicalValue()    {}
func (Map) canonicalValue()    {}

// Encode serializes m into its unique canonical byte sequence: keys sorted
// by ordinal byte value at every nesting level, no whitespace, shortest
// integer form, and string escaping compatible with the registry's verifier
// (non-ASCII escaped as \uXXXX).
func Encode(m Map) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeMap(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeMap(buf *bytes.Buffer, m Map) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodeString(buf, k)
		buf.WriteByte(':')
		if err := encodeValue(buf, m[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func encodeValue(buf *bytes.Buffer, v Value) error {
	switch t := v.(type) {
	case String:
		encodeString(buf, string(t))
		return nil
	case Int:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
		return nil
	case Map:
		return encodeMap(buf, t)
	case nil:
		return airc.NewError(airc.KindEncoding, "canonical: nil value in payload")
	default:
		return airc.NewError(airc.KindEncoding, "canonical: unsupported value type")
	}
}

// encodeString writes s as a JSON string. Everything outside the printable
// ASCII range is \u-escaped (surrogate pairs above the BMP), matching the
// registry's canonical form exactly.
func encodeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\t':
			buf.WriteString(`\t`)
		case '\n':
			buf.WriteString(`\n`)
		case '\f':
			buf.WriteString(`\f`)
		case '\r':
			buf.WriteString(`\r`)
		default:
			switch {
			case r >= 0x20 && r < 0x7f:
				buf.WriteByte(byte(r))
			case r > 0xffff:
				hi, lo := utf16.EncodeRune(r)
				writeEscape(buf, hi)
				writeEscape(buf, lo)
			default:
				writeEscape(buf, r)
			}
		}
	}
	buf.WriteByte('"')
}

func writeEscape(buf *bytes.Buffer, r rune) {
	const hexdig = "0123456789abcdef"
	buf.WriteString(`\u`)
	buf.WriteByte(hexdig[r>>12&0xf])
	buf.WriteByte(hexdig[r>>8&0xf])
	buf.WriteByte(hexdig[r>>4&0xf])
	buf.WriteByte(hexdig[r&0xf])
}
