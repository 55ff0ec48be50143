// Package address parses and writes RFC 822 / 2822 / 5322 address lists.
//
// A parsed list is a flat sequence of records. Groups are encoded in-band:
//
//	Group: a@example.com, b@example.com;
//
// becomes a group start record (Mailbox = "Group", Domain = nil), the member
// mailboxes, and a group end record in which every field is absent. Use
// IsGroupStart, IsGroupEnd and IsMailbox rather than testing Domain directly.
package address

import (
	"strings"
)

// Placeholders used by the parser when fill-missing mode is requested. Records
// carrying one of them always have InvalidSyntax set.
const (
	MissingMailbox = "MISSING_MAILBOX"
	MissingDomain  = "MISSING_DOMAIN"
	SyntaxError    = "SYNTAX_ERROR"
	InvalidRoute   = "INVALID_ROUTE"
)

// Address is one record of an address list. An empty Name, Route or Comment
// means the field is absent. Mailbox and Domain distinguish absent from
// empty, which the group encoding relies on.
type Address struct {
	// Name is the display name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Route is the obsolete source route including its leading '@', e.g.
	// "@relay1,@relay2".
	Route string `json:"route,omitempty" yaml:"route,omitempty"`
	// Mailbox is the local part, or the group name of a group start record.
	Mailbox *string `json:"mailbox" yaml:"mailbox"`
	Domain  *string `json:"domain" yaml:"domain"`
	// Comment is the content of the last comment seen while parsing the
	// record.
	Comment       string `json:"comment,omitempty" yaml:"comment,omitempty"`
	InvalidSyntax bool   `json:"invalid_syntax,omitempty" yaml:"invalid_syntax,omitempty"`
}

func stringPtr(s string) *string {
	return &s
}

// NewMailbox returns an ordinary mailbox record.
func NewMailbox(name, route, mailbox, domain, comment string) *Address {
	return &Address{
		Name:    name,
		Route:   route,
		Mailbox: stringPtr(mailbox),
		Domain:  stringPtr(domain),
		Comment: comment,
	}
}

// NewGroupStart returns the record opening a group named name.
func NewGroupStart(name string) *Address {
	return &Address{Mailbox: stringPtr(name)}
}

// NewGroupEnd returns the record closing a group.
func NewGroupEnd() *Address {
	return &Address{}
}

func (a *Address) GetMailbox() string {
	if a.Mailbox == nil {
		return ""
	}
	return *a.Mailbox
}

func (a *Address) GetDomain() string {
	if a.Domain == nil {
		return ""
	}
	return *a.Domain
}

func (a *Address) IsGroupStart() bool {
	return a.Domain == nil && a.Mailbox != nil
}

func (a *Address) IsGroupEnd() bool {
	return a.Domain == nil && a.Mailbox == nil
}

// IsMailbox reports whether a is an ordinary mailbox rather than a group
// marker.
func (a *Address) IsMailbox() bool {
	return a.Domain != nil
}

// Addr returns mailbox@domain as composed by Compose.
func (a *Address) Addr() string {
	return Compose(a.GetMailbox(), a.GetDomain())
}

// List is an ordered address list.
type List []*Address

// Add appends a copy of a.
func (l *List) Add(a *Address) {
	c := *a
	*l = append(*l, &c)
}

// Release clears every record and empties the list.
func (l *List) Release() {
	for i, a := range *l {
		*a = Address{}
		(*l)[i] = nil
	}
	*l = nil
}

// Mailboxes returns the ordinary mailbox records, group markers excluded.
func (l List) Mailboxes() []*Address {
	var retval []*Address
	for _, a := range l {
		if a.IsMailbox() {
			retval = append(retval, a)
		}
	}
	return retval
}

// Invalid returns the number of records flagged with InvalidSyntax.
func (l List) Invalid() int {
	n := 0
	for _, a := range l {
		if a.InvalidSyntax {
			n++
		}
	}
	return n
}

func (l List) String() string {
	return Write(l)
}

var addressHeaders = map[string]struct{}{
	"from":             {},
	"sender":           {},
	"reply-to":         {},
	"to":               {},
	"cc":               {},
	"bcc":              {},
	"resent-from":      {},
	"resent-sender":    {},
	"resent-to":        {},
	"resent-cc":        {},
	"resent-bcc":       {},
	"return-path":      {},
	"delivered-to":     {},
	"errors-to":        {},
	"mail-followup-to": {},
	"mail-reply-to":    {},
}

// IsAddressHeader reports whether the header field name is known to carry an
// address list.
func IsAddressHeader(name string) bool {
	_, ok := addressHeaders[strings.ToLower(name)]
	return ok
}
