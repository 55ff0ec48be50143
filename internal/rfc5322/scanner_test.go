package rfc5322

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type result struct {
	headers    [][]string
	body       string
	stragglers []string
}

type testHandler struct {
	result
}

func (h *testHandler) HandleStraggler(b []byte) error {
	h.result.stragglers = append(h.result.stragglers, string(b))
	return nil
}

func (h *testHandler) HandleHeaderLine(hl [][]byte) error {
	chunks := make([]string, len(hl))
	for i, chunk := range hl {
		chunks[i] = string(chunk)
	}
	h.result.headers = append(h.result.headers, chunks)
	return nil
}

func (h *testHandler) HandleBody(r io.Reader) error {
	bb, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	h.result.body = string(bb)
	return nil
}

func TestScan(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		expected result
		input    []byte
	}{
		{
			name: "folded address fields",
			expected: result{
				headers: [][]string{
					{"Reply-To: list:", "\tann@example.com,", "\tbob@example.com;"},
					{"Cc: (team) <team@example.org>"},
					{"Resent-To: \"Doe, J.\"", "  <j.doe@example.net>"},
				},
				body: "hello\nworld",
			},
			input: []byte(strings.Trim(`
Reply-To: list:
	ann@example.com,
	bob@example.com;
Cc: (team) <team@example.org>
Resent-To: "Doe, J."
  <j.doe@example.net>

hello
world`, "\n")),
		},
		{
			name: "continuation before the first field",
			expected: result{
				headers: [][]string{
					{"Sender: postmaster@example.com"},
				},
				body:       "x",
				stragglers: []string{" <lost@example.com>", "\tmore"},
			},
			input: []byte(strings.Trim(`
 <lost@example.com>
	more
Sender: postmaster@example.com

x`, "\n")),
		},
		{
			name: "crlf",
			expected: result{
				headers: [][]string{
					{"To: a@example.com,", " b@example.com"},
					{"Cc: c@example.com"},
				},
				body: "line\r\n",
			},
			input: []byte("To: a@example.com,\r\n b@example.com\r\nCc: c@example.com\r\n\r\nline\r\n"),
		},
		{
			name: "headers only",
			expected: result{
				headers: [][]string{
					{"To: a@example.com"},
					{"Cc: c@example.com"},
				},
			},
			input: []byte("To: a@example.com\r\nCc: c@example.com"),
		},
	}

	for i, c := range cases {
		c := c
		t.Run(fmt.Sprintf("#%d: %s", i, c.name), func(t *testing.T) {
			t.Parallel()
			h := &testHandler{}
			err := Scan(bufio.NewReader(bytes.NewReader(c.input)), h)
			if assert.NoError(t, err) {
				assert.Equal(t, c.expected, h.result)
			}
		})
	}
}

func TestScanLongLine(t *testing.T) {
	t.Parallel()

	long := "To: " + strings.Repeat("a", 100) + "@example.com"
	h := &testHandler{}
	err := Scan(bufio.NewReaderSize(strings.NewReader(long+"\r\n\r\nbody"), 16), h)
	if assert.NoError(t, err) {
		assert.Equal(t, [][]string{{long}}, h.result.headers)
		assert.Equal(t, "body", h.result.body)
	}
}

func TestSplitField(t *testing.T) {
	t.Parallel()

	name, value, ok := SplitField([][]byte{[]byte("To : a@example.com,"), []byte(" b@example.com")})
	assert.True(t, ok)
	assert.Equal(t, "To", string(name))
	assert.Equal(t, " a@example.com, b@example.com", string(value))

	_, _, ok = SplitField([][]byte{[]byte("garbage")})
	assert.False(t, ok)
	_, _, ok = SplitField(nil)
	assert.False(t, ok)
}
