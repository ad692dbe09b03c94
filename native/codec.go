package native

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Codec converts between Go strings and the character set used for
// character arguments and buffers of the native API.
type Codec interface {
	// Name is the canonical name of the character set.
	Name() string
	// CharWidth is the width in bytes of one code unit. Buffer sizes and
	// the lengths reported by the driver are expressed in code units.
	CharWidth() int
	// Encode converts s without adding a terminator.
	Encode(s string) ([]byte, error)
	// Decode converts b up to the first NUL code unit.
	Decode(b []byte) (string, error)
}

const (
	EncodingUTF8        = "utf8"
	EncodingUTF16LE     = "utf16le"
	EncodingWindows1252 = "windows1252"
)

type codec struct {
	name  string
	width int
	enc   encoding.Encoding
}

var codecs = map[string]*codec{
	EncodingUTF8:        {name: EncodingUTF8, width: 1, enc: unicode.UTF8},
	EncodingUTF16LE:     {name: EncodingUTF16LE, width: 2, enc: unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)},
	EncodingWindows1252: {name: EncodingWindows1252, width: 1, enc: charmap.Windows1252},
}

var codecAliases = map[string]string{
	"utf-8":        EncodingUTF8,
	"utf16":        EncodingUTF16LE,
	"utf-16":       EncodingUTF16LE,
	"utf-16le":     EncodingUTF16LE,
	"wide":         EncodingUTF16LE,
	"cp1252":       EncodingWindows1252,
	"windows-1252": EncodingWindows1252,
	"latin1":       EncodingWindows1252,
}

// LookupCodec returns the codec registered under name. Matching is case
// insensitive and accepts the usual aliases (utf-8, utf16, wide, cp1252, ...).
func LookupCodec(name string) (Codec, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := codecAliases[n]; ok {
		n = alias
	}
	if c, ok := codecs[n]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("unknown character set %q", name)
}

func (c *codec) Name() string { return c.name }

func (c *codec) CharWidth() int { return c.width }

func (c *codec) Encode(s string) ([]byte, error) {
	return c.enc.NewEncoder().Bytes([]byte(s))
}

func (c *codec) Decode(b []byte) (string, error) {
	b = c.trim(b)
	if len(b) == 0 {
		return "", nil
	}
	out, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// trim cuts b at the first NUL code unit and drops a trailing partial unit.
func (c *codec) trim(b []byte) []byte {
	if c.width == 1 {
		if i := bytes.IndexByte(b, 0); i >= 0 {
			return b[:i]
		}
		return b
	}
	n := len(b) - len(b)%c.width
	for i := 0; i < n; i += c.width {
		if isZero(b[i : i+c.width]) {
			return b[:i]
		}
	}
	return b[:n]
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
