// Package charset decodes RFC 2047 encoded-words in header values.
package charset

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/moriyoshi/mailaddr/internal/rfc822"
)

// charsetName returns charset without its RFC 2231 language suffix
// ("utf-8*en" -> "utf-8"). ok is false if charset is not a MIME token.
func charsetName(charset string) (name string, ok bool) {
	var out bytes.Buffer
	s := rfc822.NewScanner([]byte(charset), nil)
	if s.SkipLWSP() == rfc822.EOF {
		return "", true
	}
	if s.ParseMIMEToken(&out) != rfc822.EOF {
		return "", false
	}
	name, _, _ = strings.Cut(out.String(), "*")
	return name, true
}

// Reader converts input from the named charset to UTF-8. Unknown charsets
// are passed through unchanged.
func Reader(charset string, input io.Reader) (io.Reader, error) {
	name, ok := charsetName(charset)
	if !ok {
		return nil, fmt.Errorf("invalid charset name: %q", charset)
	}
	if name == "" {
		return input, nil
	}
	enc, err := ianaindex.IANA.Encoding(strings.ToLower(name))
	if err != nil || enc == nil {
		return input, nil
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

var decoder = &mime.WordDecoder{CharsetReader: Reader}

// DecodeHeader decodes the encoded-words in s. s is returned as is if it
// cannot be decoded.
func DecodeHeader(s string) string {
	if !strings.Contains(s, "=?") {
		return s
	}
	d, err := decoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return d
}
