// Package rfc5322 splits a message into its header fields and body.
package rfc5322

import (
	"bufio"
	"bytes"
	"io"
)

// ScannerHandler receives the components of a message in order. A header
// line is passed as its physical lines, without line terminators.
type ScannerHandler interface {
	HandleStraggler([]byte) error
	HandleHeaderLine([][]byte) error
	HandleBody(io.Reader) error
}

// readLine returns the next line with its terminator removed. The returned
// slice is never shared with the reader's buffer.
func readLine(r *bufio.Reader) ([]byte, error) {
	var l []byte
	for {
		chunk, err := r.ReadSlice('\n')
		l = append(l, chunk...)
		if err == bufio.ErrBufferFull {
			continue
		}
		if n := len(l); n > 0 && l[n-1] == '\n' {
			l = l[:n-1]
			if n >= 2 && l[n-2] == '\r' {
				l = l[:n-2]
			}
		}
		return l, err
	}
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t'
}

// Scan reads the header section from r and hands the rest of r to the body
// handler, which is called even if the message has no body. Continuation
// lines before the first field are reported as stragglers.
func Scan(r *bufio.Reader, handler ScannerHandler) error {
	var chunks [][]byte
	flush := func() error {
		if len(chunks) == 0 {
			return nil
		}
		err := handler.HandleHeaderLine(chunks)
		chunks = nil
		return err
	}
	for {
		l, err := readLine(r)
		if err != nil && err != io.EOF {
			return err
		}
		eof := err == io.EOF
		switch {
		case len(l) == 0:
			if err := flush(); err != nil {
				return err
			}
			return handler.HandleBody(r)
		case isWhitespace(l[0]) && len(chunks) == 0:
			if err := handler.HandleStraggler(l); err != nil {
				return err
			}
		case isWhitespace(l[0]):
			chunks = append(chunks, l)
		default:
			if err := flush(); err != nil {
				return err
			}
			chunks = append(chunks, l)
		}
		if eof {
			if err := flush(); err != nil {
				return err
			}
			return handler.HandleBody(r)
		}
	}
}

// SplitField splits a header line into its field name and its unfolded
// value. ok is false if the first line carries no colon.
func SplitField(chunks [][]byte) (name []byte, value []byte, ok bool) {
	if len(chunks) == 0 {
		return nil, nil, false
	}
	i := bytes.IndexByte(chunks[0], ':')
	if i < 0 {
		return nil, nil, false
	}
	valueChunks := make([][]byte, len(chunks))
	valueChunks[0] = chunks[0][i+1:]
	copy(valueChunks[1:], chunks[1:])
	return bytes.TrimSpace(chunks[0][:i]), bytes.Join(valueChunks, nil), true
}

type functionBackedScannerHandler struct {
	StragglerHandler  func([]byte) error
	HeaderLineHandler func([][]byte) error
	BodyHandler       func(io.Reader) error
}

func (h *functionBackedScannerHandler) HandleStraggler(l []byte) error {
	if h.StragglerHandler == nil {
		return nil
	}
	return h.StragglerHandler(l)
}

func (h *functionBackedScannerHandler) HandleHeaderLine(l [][]byte) error {
	if h.HeaderLineHandler == nil {
		return nil
	}
	return h.HeaderLineHandler(l)
}

func (h *functionBackedScannerHandler) HandleBody(r io.Reader) error {
	if h.BodyHandler == nil {
		return nil
	}
	return h.BodyHandler(r)
}

func ScannerHandlerFromFunctions(
	stragglerHandler func([]byte) error,
	headerLineHandler func([][]byte) error,
	bodyHandler func(io.Reader) error,
) ScannerHandler {
	return &functionBackedScannerHandler{
		StragglerHandler:  stragglerHandler,
		HeaderLineHandler: headerLineHandler,
		BodyHandler:       bodyHandler,
	}
}
