package rfc5322

import (
	"io"
)

// Builder writes the components it receives back out as a message with CRLF
// line terminators.
type Builder struct {
	io.Writer
	shortWrite bool
}

var newline = []byte{'\r', '\n'}

func (bl *Builder) write(b []byte) error {
	n, err := bl.Writer.Write(b)
	if n != len(b) {
		bl.shortWrite = true
	}
	if err == nil && bl.shortWrite {
		err = io.ErrShortWrite
	}
	return err
}

func (bl *Builder) HandleStraggler(b []byte) error {
	if err := bl.write(b); err != nil {
		return err
	}
	return bl.write(newline)
}

func (bl *Builder) HandleHeaderLine(chunks [][]byte) error {
	for _, chunk := range chunks {
		if err := bl.write(chunk); err != nil {
			return err
		}
		if err := bl.write(newline); err != nil {
			return err
		}
	}
	return nil
}

func (bl *Builder) HandleBody(r io.Reader) error {
	if err := bl.write(newline); err != nil {
		return err
	}
	_, err := io.Copy(bl.Writer, r)
	return err
}

func (bl *Builder) ShortWrite() bool {
	return bl.shortWrite
}
