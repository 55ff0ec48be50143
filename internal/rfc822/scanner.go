// Package rfc822 implements the token-level grammar of RFC 822 / 2822 / 5322
// header values on top of an immutable byte slice.
//
// Every parsing primitive skips the whitespace and comments that follow the
// value it consumed, but not the ones preceding it, so a typical caller begins
// with SkipLWSP and then chains the primitives. Primitives report their outcome
// as a Result.
package rfc822

import (
	"bytes"
)

// Result is the outcome of a scanning primitive.
type Result int

const (
	// Invalid means the input violated the grammar.
	Invalid Result = -1
	// EOF means the input was consumed entirely. A value may still have been
	// produced.
	EOF Result = 0
	// More means input remains after the value and its trailing whitespace.
	More Result = 1
)

func (r Result) String() string {
	switch r {
	case Invalid:
		return "invalid"
	case EOF:
		return "eof"
	case More:
		return "more"
	}
	return "unknown"
}

// Scanner is a cursor over an input. LastComment, when non-nil, receives the
// content of the most recently closed outermost comment.
type Scanner struct {
	data        []byte
	pos         int
	LastComment *bytes.Buffer
}

func NewScanner(data []byte, lastComment *bytes.Buffer) *Scanner {
	return &Scanner{data: data, LastComment: lastComment}
}

func (s *Scanner) Pos() int {
	return s.pos
}

// SetPos moves the cursor. It is meant for rewinding to a position obtained
// from Pos.
func (s *Scanner) SetPos(pos int) {
	s.pos = pos
}

func (s *Scanner) AtEnd() bool {
	return s.pos >= len(s.data)
}

// Is reports whether the byte under the cursor is c.
func (s *Scanner) Is(c byte) bool {
	return s.pos < len(s.data) && s.data[s.pos] == c
}

func (s *Scanner) Advance() {
	if s.pos < len(s.data) {
		s.pos++
	}
}

// Since returns the input between start and the cursor.
func (s *Scanner) Since(start int) []byte {
	return s.data[start:s.pos]
}

// Status returns More if input remains and EOF otherwise.
func (s *Scanner) Status() Result {
	if s.pos < len(s.data) {
		return More
	}
	return EOF
}

// SkipComment consumes a parenthesized comment. The cursor must be on '('.
// Only the outermost level is captured: escapes are resolved and nested
// comments are dropped along with their parentheses.
func (s *Scanner) SkipComment() Result {
	if s.LastComment != nil {
		s.LastComment.Reset()
	}
	s.pos++
	depth := 1
	for ; s.pos < len(s.data); s.pos++ {
		c := s.data[s.pos]
		switch c {
		case '(':
			depth++
			continue
		case ')':
			depth--
			if depth == 0 {
				s.pos++
				return s.Status()
			}
			continue
		case '\\':
			s.pos++
			if s.pos == len(s.data) {
				return Invalid
			}
			c = s.data[s.pos]
		}
		if depth == 1 && s.LastComment != nil {
			s.LastComment.WriteByte(c)
		}
	}
	// missing ')'
	return Invalid
}

// SkipLWSP consumes whitespace, line breaks and comments.
func (s *Scanner) SkipLWSP() Result {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if isLWSP(c) {
			s.pos++
			continue
		}
		if c != '(' {
			break
		}
		if s.SkipComment() == Invalid {
			return Invalid
		}
	}
	return s.Status()
}

// ParseDotAtom consumes 1*atext *("." 1*atext). Whitespace and comments
// around the dots are tolerated for RFC 822 compatibility and dropped.
func (s *Scanner) ParseDotAtom(out *bytes.Buffer) Result {
	if s.AtEnd() || !IsAtext(s.data[s.pos]) {
		return Invalid
	}
	start := s.pos
	for s.pos++; s.pos < len(s.data); {
		if IsAtext(s.data[s.pos]) {
			s.pos++
			continue
		}
		out.Write(s.data[start:s.pos])
		if r := s.SkipLWSP(); r != More {
			return r
		}
		if s.data[s.pos] != '.' {
			return More
		}
		s.pos++
		out.WriteByte('.')
		if r := s.SkipLWSP(); r != More {
			return r
		}
		start = s.pos
	}
	out.Write(s.data[start:])
	return EOF
}

// ParseMIMEToken consumes a MIME token. Unlike ParseDotAtom it stops at
// '/', '?' and '=' and does not allow whitespace around dots.
func (s *Scanner) ParseMIMEToken(out *bytes.Buffer) Result {
	start := s.pos
	for ; s.pos < len(s.data); s.pos++ {
		if c := s.data[s.pos]; IsToken(c) || c == '.' {
			continue
		}
		out.Write(s.data[start:s.pos])
		return s.SkipLWSP()
	}
	out.Write(s.data[start:])
	return EOF
}

// ParseQuotedString consumes a quoted string. The cursor must be on '"'.
// Backslashes are dropped and the byte they escape is kept. A line feed,
// together with a preceding carriage return, is folding and is removed.
func (s *Scanner) ParseQuotedString(out *bytes.Buffer) Result {
	s.pos++
	start := s.pos
	for ; s.pos < len(s.data); s.pos++ {
		switch s.data[s.pos] {
		case '"':
			out.Write(s.data[start:s.pos])
			s.pos++
			return s.SkipLWSP()
		case '\n':
			end := s.pos
			if end > start && s.data[end-1] == '\r' {
				end--
			}
			out.Write(s.data[start:end])
			start = s.pos + 1
		case '\\':
			s.pos++
			if s.pos == len(s.data) {
				return Invalid
			}
			out.Write(s.data[start : s.pos-1])
			start = s.pos
		}
	}
	// missing '"'
	return Invalid
}

// ParseAtomOrDot consumes a run of atext and dots. Unlike ParseDotAtom it
// stops at the first whitespace.
func (s *Scanner) ParseAtomOrDot(out *bytes.Buffer) Result {
	start := s.pos
	for ; s.pos < len(s.data); s.pos++ {
		if c := s.data[s.pos]; IsAtext(c) || c == '.' {
			continue
		}
		out.Write(s.data[start:s.pos])
		return s.SkipLWSP()
	}
	out.Write(s.data[start:])
	return EOF
}

// ParsePhrase consumes one or more words, each either a quoted string or an
// atom (dots allowed, as in obs-phrase), and joins them with single spaces.
func (s *Scanner) ParsePhrase(out *bytes.Buffer) Result {
	if s.AtEnd() {
		return EOF
	}
	if s.data[s.pos] == '.' {
		return Invalid
	}
	for {
		var r Result
		if s.data[s.pos] == '"' {
			r = s.ParseQuotedString(out)
		} else {
			r = s.ParseAtomOrDot(out)
		}
		if r != More {
			return r
		}
		if c := s.data[s.pos]; !IsAtext(c) && c != '"' && c != '.' {
			break
		}
		out.WriteByte(' ')
	}
	return s.SkipLWSP()
}

// ParseDomainLiteral copies a bracketed domain literal, brackets included.
// The cursor must be on '['.
func (s *Scanner) ParseDomainLiteral(out *bytes.Buffer) Result {
	start := s.pos
	for ; s.pos < len(s.data); s.pos++ {
		switch s.data[s.pos] {
		case '\\':
			s.pos++
			if s.pos == len(s.data) {
				return Invalid
			}
		case ']':
			s.pos++
			out.Write(s.data[start:s.pos])
			return s.SkipLWSP()
		}
	}
	// missing ']'
	return Invalid
}

// ParseDomain consumes "@" followed by a dot-atom or a domain literal. The
// cursor must be on '@', which is not copied.
func (s *Scanner) ParseDomain(out *bytes.Buffer) Result {
	s.pos++
	if s.SkipLWSP() != More {
		return Invalid
	}
	if s.data[s.pos] == '[' {
		return s.ParseDomainLiteral(out)
	}
	return s.ParseDotAtom(out)
}
