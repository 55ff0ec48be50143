package address

import (
	"errors"

	"github.com/moriyoshi/mailaddr/internal/logging"
	"github.com/moriyoshi/mailaddr/internal/rfc822"
)

var ErrMalformedAddress = errors.New("malformed addr-spec")

// Split parses input as exactly one addr-spec and returns its local part and
// domain. Display names, routes, groups and trailing text are rejected.
func Split(input string) (mailbox, domain string, err error) {
	if input == "" {
		return "", "", ErrMalformedAddress
	}
	p := newAddrParser([]byte(input), false, false, logging.OrDiscard(nil))
	r := p.s.SkipLWSP()
	if r == rfc822.More {
		r = p.parseAddrSpec()
	} else {
		r = rfc822.Invalid
	}
	if r == rfc822.Invalid || !p.s.AtEnd() || p.addr.InvalidSyntax {
		return "", "", ErrMalformedAddress
	}
	return p.addr.GetMailbox(), p.addr.GetDomain(), nil
}
