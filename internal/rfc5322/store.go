package rfc5322

import (
	"bytes"
	"io"
)

type ComponentType int

const (
	Header ComponentType = iota
	Straggler
	Body
)

type Component struct {
	Type ComponentType
	Data [][]byte
}

// Store records the components of a message so that they can be edited and
// replayed to another handler.
type Store []Component

func (s *Store) HandleStraggler(b []byte) error {
	b = append([]byte(nil), b...)
	*s = append(*s, Component{Type: Straggler, Data: [][]byte{b}})
	return nil
}

func (s *Store) HandleHeaderLine(chunks [][]byte) error {
	*s = append(*s, Component{Type: Header, Data: chunks})
	return nil
}

func (s *Store) HandleBody(r io.Reader) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	*s = append(*s, Component{Type: Body, Data: [][]byte{body}})
	return nil
}

// InsertHeaderLine adds a header line after the last header line.
func (s *Store) InsertHeaderLine(chunks [][]byte) {
	i := len(*s)
	for i > 0 && (*s)[i-1].Type == Body {
		i--
	}
	*s = append(*s, Component{})
	copy((*s)[i+1:], (*s)[i:])
	(*s)[i] = Component{Type: Header, Data: chunks}
}

// DeleteFields removes every header field named name, ignoring case, and
// returns how many were removed.
func (s *Store) DeleteFields(name []byte) int {
	kept := (*s)[:0]
	for _, c := range *s {
		if c.Type == Header {
			if n, _, ok := SplitField(c.Data); ok && bytes.EqualFold(n, name) {
				continue
			}
		}
		kept = append(kept, c)
	}
	n := len(*s) - len(kept)
	*s = kept
	return n
}

func (s *Store) Replay(h ScannerHandler) error {
	for _, c := range *s {
		switch c.Type {
		case Header:
			if err := h.HandleHeaderLine(c.Data); err != nil {
				return err
			}
		case Straggler:
			if err := h.HandleStraggler(c.Data[0]); err != nil {
				return err
			}
		case Body:
			if err := h.HandleBody(bytes.NewReader(c.Data[0])); err != nil {
				return err
			}
		}
	}
	return nil
}
