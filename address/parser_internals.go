package address

import (
	"bytes"
	"log/slog"

	"github.com/moriyoshi/mailaddr/internal/rfc822"
)

// draft is the record under construction. original holds the raw input the
// record was built from and never leaves the parser.
type draft struct {
	Address
	original []byte
}

type addrParser struct {
	s           *rfc822.Scanner
	comment     bytes.Buffer
	str         bytes.Buffer
	addr        draft
	list        List
	fillMissing bool
	logger      *slog.Logger
}

// checkpoint is a rewind target for the two backtracking sites.
type checkpoint struct {
	pos     int
	comment []byte
}

func newAddrParser(input []byte, fillMissing bool, captureComments bool, logger *slog.Logger) *addrParser {
	p := &addrParser{
		fillMissing: fillMissing,
		logger:      logger,
	}
	if captureComments {
		p.s = rfc822.NewScanner(input, &p.comment)
	} else {
		p.s = rfc822.NewScanner(input, nil)
	}
	return p
}

func (p *addrParser) save() checkpoint {
	cp := checkpoint{pos: p.s.Pos()}
	if p.comment.Len() > 0 {
		cp.comment = append([]byte(nil), p.comment.Bytes()...)
	}
	return cp
}

func (p *addrParser) restore(cp checkpoint) {
	p.s.SetPos(cp.pos)
	p.comment.Reset()
	p.comment.Write(cp.comment)
}

func (p *addrParser) placeholder(s string) string {
	if p.fillMissing {
		return s
	}
	return ""
}

func (p *addrParser) attachComment() {
	if p.s.LastComment != nil && p.comment.Len() > 0 {
		p.addr.Comment = p.comment.String()
	}
}

func (p *addrParser) add() {
	a := p.addr.Address
	p.list = append(p.list, &a)
	p.addr = draft{}
}

// addFixed fills in a missing mailbox or domain before adding the record.
func (p *addrParser) addFixed() {
	a := &p.addr
	if a.Mailbox == nil {
		a.Mailbox = stringPtr(p.placeholder(MissingMailbox))
		a.InvalidSyntax = true
	}
	if a.Domain == nil || *a.Domain == "" {
		a.Domain = stringPtr(p.placeholder(MissingDomain))
		a.InvalidSyntax = true
	}
	if a.InvalidSyntax {
		p.logger.Debug(
			"tolerated invalid address",
			slog.String("original", string(a.original)),
			slog.String("mailbox", *a.Mailbox),
			slog.String("domain", *a.Domain),
		)
	}
	p.add()
}

func (p *addrParser) parse(limit uint) List {
	if p.s.SkipLWSP() != rfc822.More {
		return nil
	}
	p.parseAddressList(limit)
	return p.list
}

// address-list = (address *("," address)) / obs-addr-list
func (p *addrParser) parseAddressList(limit uint) {
	for ; limit > 0; limit-- {
		if p.parseAddress() == rfc822.EOF {
			return
		}
		if !p.s.Is(',') {
			return
		}
		p.s.Advance()
		p.comment.Reset()
		start := p.s.Pos()
		if r := p.s.SkipLWSP(); r != rfc822.More {
			if r == rfc822.Invalid {
				// trailing garbage
				p.addr.original = p.s.Since(start)
				p.addFixed()
			}
			return
		}
	}
}

// address = mailbox / group
func (p *addrParser) parseAddress() rfc822.Result {
	start := p.save()
	if r := p.parseGroup(); r != rfc822.Invalid {
		return r
	}
	p.restore(start)
	return p.parseMailbox()
}

// group = display-name ":" [mailbox-list / CFWS] ";" [CFWS]
func (p *addrParser) parseGroup() rfc822.Result {
	p.str.Reset()
	if p.s.ParsePhrase(&p.str) != rfc822.More || !p.s.Is(':') {
		return rfc822.Invalid
	}

	// committed: report the group even if the rest is broken
	p.s.Advance()
	p.comment.Reset()
	r := p.s.SkipLWSP()
	if r != rfc822.More {
		p.addr.InvalidSyntax = true
	}
	p.addr.Mailbox = stringPtr(p.str.String())
	p.add()

	if r == rfc822.More && !p.s.Is(';') {
		for {
			p.parseMailbox()
			if !p.s.Is(',') {
				break
			}
			p.s.Advance()
			p.comment.Reset()
			if p.s.SkipLWSP() != rfc822.More {
				r = rfc822.Invalid
				break
			}
		}
	}
	if r != rfc822.Invalid {
		if !p.s.Is(';') {
			r = rfc822.Invalid
		} else {
			p.s.Advance()
			r = p.s.SkipLWSP()
		}
	}
	if r == rfc822.Invalid {
		p.addr.InvalidSyntax = true
	}
	p.add()
	if r == rfc822.EOF {
		return rfc822.EOF
	}
	return rfc822.More
}

// mailbox = name-addr / addr-spec
func (p *addrParser) parseMailbox() rfc822.Result {
	start := p.save()
	r := p.parseNameAddr()
	if r == rfc822.Invalid {
		p.addr = draft{}
		p.restore(start)
		r = p.parseAddrSpec()
		// a bare word without @domain is kept as a display name
		if a := &p.addr; a.InvalidSyntax && a.Name == "" && a.Mailbox != nil && a.Domain == nil {
			a.Name = *a.Mailbox
			a.Mailbox = nil
		}
	}
	if r == rfc822.Invalid {
		p.addr.InvalidSyntax = true
	}
	p.addr.original = p.s.Since(start.pos)
	p.addFixed()
	return r
}

// name-addr = [display-name] angle-addr
func (p *addrParser) parseNameAddr() rfc822.Result {
	p.str.Reset()
	if p.s.ParsePhrase(&p.str) != rfc822.More || !p.s.Is('<') {
		return rfc822.Invalid
	}
	p.addr.Name = p.str.String()

	if p.parseAngleAddr() == rfc822.Invalid {
		if p.fillMissing {
			p.addr.Domain = stringPtr(SyntaxError)
		}
		p.addr.InvalidSyntax = true
	}
	p.attachComment()
	return p.s.Status()
}

// angle-addr = "<" [route ":"] local-part "@" domain ">"
func (p *addrParser) parseAngleAddr() rfc822.Result {
	p.s.Advance()
	if r := p.s.SkipLWSP(); r != rfc822.More {
		return r
	}

	if p.s.Is('@') {
		if p.parseDomainList() != rfc822.More || !p.s.Is(':') {
			if p.fillMissing {
				p.addr.Route = InvalidRoute
			}
			p.addr.InvalidSyntax = true
			if p.s.AtEnd() {
				return rfc822.Invalid
			}
		}
		// skips the ':', or a single byte of whatever broke the route
		p.s.Advance()
		if r := p.s.SkipLWSP(); r != rfc822.More {
			return r
		}
	}

	// "<>" is not a valid address but is left to addFixed
	if !p.s.Is('>') {
		if r := p.parseLocalPart(); r != rfc822.More {
			return r
		}
		if p.s.Is('@') {
			if r := p.parseDomain(); r != rfc822.More {
				return r
			}
		}
	}

	if !p.s.Is('>') {
		return rfc822.Invalid
	}
	p.s.Advance()
	return p.s.SkipLWSP()
}

// obs-domain-list = "@" domain *(*(CFWS / ",") [CFWS] "@" domain)
func (p *addrParser) parseDomainList() rfc822.Result {
	p.str.Reset()
	for {
		if p.s.AtEnd() {
			return rfc822.EOF
		}
		if !p.s.Is('@') {
			break
		}
		if p.str.Len() > 0 {
			p.str.WriteByte(',')
		}
		p.str.WriteByte('@')
		if r := p.s.ParseDomain(&p.str); r != rfc822.More {
			return r
		}
		for p.s.SkipLWSP() == rfc822.More && p.s.Is(',') {
			p.s.Advance()
		}
	}
	p.addr.Route = p.str.String()
	return rfc822.More
}

// addr-spec = local-part "@" domain
func (p *addrParser) parseAddrSpec() rfc822.Result {
	r := p.parseLocalPart()
	if r != rfc822.More {
		p.addr.InvalidSyntax = true
	}
	if r != rfc822.EOF && p.s.Is('@') {
		if r2 := p.parseDomain(); r2 != rfc822.More {
			r = r2
		}
	}
	p.attachComment()
	return r
}

// local-part = dot-atom / quoted-string / obs-local-part
func (p *addrParser) parseLocalPart() rfc822.Result {
	p.str.Reset()
	var r rfc822.Result
	if p.s.Is('"') {
		r = p.s.ParseQuotedString(&p.str)
	} else {
		r = p.s.ParseDotAtom(&p.str)
	}
	if r == rfc822.Invalid {
		return r
	}
	p.addr.Mailbox = stringPtr(p.str.String())
	return r
}

func (p *addrParser) parseDomain() rfc822.Result {
	p.str.Reset()
	r := p.s.ParseDomain(&p.str)
	if r == rfc822.Invalid {
		return r
	}
	p.addr.Domain = stringPtr(p.str.String())
	return r
}
