package address

import (
	"strings"

	"github.com/moriyoshi/mailaddr/internal/rfc822"
)

// AppendList appends the canonical form of l to b.
//
// Group markers are written as "name: member, member;" and an empty group as
// "name:;". Display names holding a MIME encoded-word are written verbatim,
// since an encoded-word must not appear inside a quoted string.
func AppendList(b []byte, l List) []byte {
	first, inGroup := true, false
	for _, a := range l {
		if first {
			first = false
		} else {
			b = append(b, ',', ' ')
		}

		switch {
		case !a.IsMailbox() && !inGroup:
			if name := a.GetMailbox(); name != "" {
				b = appendPhrase(b, name)
			} else {
				b = append(b, '"', '"')
			}
			b = append(b, ':', ' ')
			first = true
			inGroup = true
		case !a.IsMailbox():
			// cut the separator written before the end marker
			if n := len(b); n >= 2 && b[n-1] == ' ' {
				switch b[n-2] {
				case ',':
					b = b[:n-2]
				case ':':
					b = b[:n-1]
				}
			}
			b = append(b, ';')
			inGroup = false
		case a.Name == "" && a.Route == "":
			b = appendMaybeEscape(b, a.GetMailbox(), false)
			b = append(b, '@')
			b = append(b, a.GetDomain()...)
			b = appendComment(b, a.Comment)
		default:
			if a.Name != "" {
				b = appendPhrase(b, a.Name)
			}
			mailbox, domain := a.GetMailbox(), a.GetDomain()
			if a.Route != "" || mailbox != "" || domain != "" {
				if a.Name != "" {
					b = append(b, ' ')
				}
				b = append(b, '<')
				if a.Route != "" {
					b = append(b, a.Route...)
					b = append(b, ':')
				}
				if mailbox == "" {
					b = append(b, '"', '"')
				} else {
					b = appendMaybeEscape(b, mailbox, false)
				}
				if domain != "" {
					b = append(b, '@')
					b = append(b, domain...)
				}
				b = append(b, '>')
			}
			b = appendComment(b, a.Comment)
		}
	}
	return b
}

// Write returns the canonical form of l.
func Write(l List) string {
	return string(AppendList(make([]byte, 0, 128), l))
}

// Compose returns mailbox@domain, quoting the mailbox when needed. The domain
// is copied as is.
func Compose(mailbox, domain string) string {
	b := make([]byte, 0, len(mailbox)+len(domain)+3)
	b = appendMaybeEscape(b, mailbox, false)
	b = append(b, '@')
	b = append(b, domain...)
	return string(b)
}

// appendComment writes " (comment)". Parentheses and backslashes in the
// text are escaped so that the comment reads back the same.
func appendComment(b []byte, comment string) []byte {
	if comment == "" {
		return b
	}
	b = append(b, ' ', '(')
	for i := 0; i < len(comment); i++ {
		switch c := comment[i]; c {
		case '(', ')', '\\':
			b = append(b, '\\', c)
		default:
			b = append(b, c)
		}
	}
	return append(b, ')')
}

func appendPhrase(b []byte, v string) []byte {
	if strings.Contains(v, "=?") {
		return append(b, v...)
	}
	return appendMaybeEscape(b, v, true)
}

// appendMaybeEscape appends v bare if it is all atext, quoted if it contains
// none of '"', '\\' and '\'', and quoted with those escaped otherwise. With
// escapeDot a '.' forces quoting.
func appendMaybeEscape(b []byte, v string, escapeDot bool) []byte {
	i := 0
	for ; i < len(v); i++ {
		if c := v[i]; !rfc822.IsAtext(c) && (escapeDot || c != '.') {
			break
		}
	}
	if i == len(v) {
		return append(b, v...)
	}

	j := 0
	for ; j < len(v); j++ {
		if rfc822.IsEscaped(v[j]) {
			break
		}
	}
	b = append(b, '"')
	b = append(b, v[:j]...)
	for ; j < len(v); j++ {
		if rfc822.IsEscaped(v[j]) {
			b = append(b, '\\')
		}
		b = append(b, v[j])
	}
	return append(b, '"')
}
