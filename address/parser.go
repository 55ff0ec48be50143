package address

import (
	"log/slog"
	"math"

	"github.com/moriyoshi/mailaddr/internal/logging"
)

// An AddressParser is a tolerant RFC 822 address list parser.
//
// Parsing never fails as a whole. Once a group's ':' or a name-addr's '<'
// has been seen, grammar violations are recorded on the record being built
// (InvalidSyntax, plus placeholder text when FillMissing is set) and the
// parser moves on to the next address.
type AddressParser struct {
	// MaxAddresses caps the number of top-level addresses. Zero means no
	// limit.
	MaxAddresses uint
	// FillMissing selects the MISSING_MAILBOX / MISSING_DOMAIN /
	// SYNTAX_ERROR / INVALID_ROUTE placeholders instead of empty strings.
	FillMissing bool
	// Logger receives a debug entry for every tolerated invalid record.
	Logger *slog.Logger
}

// ParseList parses an address header value.
func (p *AddressParser) ParseList(list string) List {
	return p.ParseListBytes([]byte(list))
}

// ParseListBytes parses an address header value. Empty or whitespace-only
// input yields an empty list.
func (p *AddressParser) ParseListBytes(list []byte) List {
	l, _ := p.ParsePrefix(list)
	return l
}

// ParsePrefix is ParseListBytes that also returns the number of bytes of
// list that were read. n is less than len(list) when parsing stopped at the
// MaxAddresses cap or at text that cannot continue the list.
func (p *AddressParser) ParsePrefix(list []byte) (l List, n int) {
	limit := p.MaxAddresses
	if limit == 0 {
		limit = math.MaxUint
	}
	ap := newAddrParser(list, p.FillMissing, true, logging.OrDiscard(p.Logger))
	l = ap.parse(limit)
	return l, ap.s.Pos()
}

// ParseAddresses parses at most maxAddresses top-level addresses from input.
// Unlike AddressParser, a zero maxAddresses yields an empty list.
func ParseAddresses(input []byte, maxAddresses uint, fillMissing bool) List {
	if maxAddresses == 0 {
		return nil
	}
	return (&AddressParser{
		MaxAddresses: maxAddresses,
		FillMissing:  fillMissing,
	}).ParseListBytes(input)
}
