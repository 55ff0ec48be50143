// Package rewriter applies mailbox rewrite rules to the address header fields
// of a message and optionally re-signs it with DKIM.
package rewriter

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/emersion/go-msgauth/dkim"
	yaml "gopkg.in/yaml.v3"

	"github.com/moriyoshi/mailaddr/address"
	"github.com/moriyoshi/mailaddr/internal/logging"
	"github.com/moriyoshi/mailaddr/internal/rfc5322"
	"github.com/moriyoshi/mailaddr/types"
)

type Rewriter struct {
	Rules           Rules
	canonicalize    bool
	logger          *slog.Logger
	parser          *address.AddressParser
	fillMissing     bool
	maxAddresses    uint
	dkimSignOptions *dkim.SignOptions
}

var _ types.Rewriter = (*Rewriter)(nil)

type RewriterOptionFunc func(*Rewriter) (*Rewriter, error)

func WithLogger(logger *slog.Logger) RewriterOptionFunc {
	return func(r *Rewriter) (*Rewriter, error) {
		r.logger = logging.OrDiscard(logger)
		return r, nil
	}
}

// WithCanonicalize makes every cleanly parsed address field be written back
// in canonical form, even if no rule changed it.
func WithCanonicalize(enabled bool) RewriterOptionFunc {
	return func(r *Rewriter) (*Rewriter, error) {
		r.canonicalize = enabled
		return r, nil
	}
}

func WithFillMissing(enabled bool) RewriterOptionFunc {
	return func(r *Rewriter) (*Rewriter, error) {
		r.fillMissing = enabled
		return r, nil
	}
}

// WithMaxAddresses caps the number of addresses read from a single field.
// Zero means no limit.
func WithMaxAddresses(n uint) RewriterOptionFunc {
	return func(r *Rewriter) (*Rewriter, error) {
		r.maxAddresses = n
		return r, nil
	}
}

func WithDKIMSignOptions(options *dkim.SignOptions) RewriterOptionFunc {
	return func(r *Rewriter) (*Rewriter, error) {
		r.dkimSignOptions = options
		return r, nil
	}
}

func NewRewriterFromYAML(b []byte, options ...RewriterOptionFunc) (*Rewriter, error) {
	var rr Rules
	err := yaml.Unmarshal(b, &rr)
	if err != nil {
		return nil, err
	}
	return NewRewriter(rr, options...)
}

// NewRewriterFromYAMLFile reads rules from a YAML or JSON file.
func NewRewriterFromYAMLFile(path string, options ...RewriterOptionFunc) (*Rewriter, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := NewRewriterFromYAML(b, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules from %s: %w", path, err)
	}
	return r, nil
}

func NewRewriter(rr Rules, options ...RewriterOptionFunc) (*Rewriter, error) {
	r := &Rewriter{
		Rules:  rr,
		logger: logging.OrDiscard(nil),
	}
	for _, option := range options {
		var err error
		r, err = option(r)
		if err != nil {
			return nil, err
		}
	}
	r.parser = &address.AddressParser{
		MaxAddresses: r.maxAddresses,
		FillMissing:  r.fillMissing,
		Logger:       r.logger,
	}
	r.logger.Info("rewriter created", slog.Any("rules", len(rr)))
	for i, rule := range rr {
		r.logger.Info("rule", slog.Int("precedence", i), slog.String("match", rule.R.String()), slog.String("substitution", rule.S))
	}
	return r, nil
}

var dkimSignatureB = []byte("DKIM-Signature")

// Rewrite writes data to w with its address header fields rewritten. Fields
// that contain an invalid address, or that are not read to the end, are
// copied unchanged. Existing DKIM signatures are dropped when a field changed
// or a new signature is added.
func (rw *Rewriter) Rewrite(w io.Writer, data []byte) (types.Stats, error) {
	var stats types.Stats
	var s rfc5322.Store
	changed := false
	err := rfc5322.Scan(
		bufio.NewReader(bytes.NewReader(data)),
		rfc5322.ScannerHandlerFromFunctions(
			s.HandleStraggler,
			func(chunks [][]byte) error {
				name, value, ok := rfc5322.SplitField(chunks)
				if ok && address.IsAddressHeader(string(name)) {
					newChunks, fs := rw.rewriteField(chunks, name, value)
					if !slices.EqualFunc(chunks, newChunks, bytes.Equal) {
						changed = true
					}
					chunks = newChunks
					stats.Add(fs)
				}
				return s.HandleHeaderLine(chunks)
			},
			s.HandleBody,
		),
	)
	if err != nil {
		return stats, fmt.Errorf("failed to scan message: %w", err)
	}

	if changed || rw.dkimSignOptions != nil {
		if n := s.DeleteFields(dkimSignatureB); n > 0 {
			rw.logger.Info("dropped DKIM signatures", slog.Int("count", n))
		}
	}

	if rw.dkimSignOptions != nil {
		signature, err := rw.sign(&s)
		if err != nil {
			return stats, fmt.Errorf("failed to sign message: %w", err)
		}
		s.InsertHeaderLine(signature)
	}

	if err := s.Replay(&rfc5322.Builder{Writer: w}); err != nil {
		return stats, err
	}
	return stats, nil
}

func (rw *Rewriter) sign(s *rfc5322.Store) ([][]byte, error) {
	signer, err := dkim.NewSigner(rw.dkimSignOptions)
	if err != nil {
		return nil, err
	}
	err = s.Replay(&rfc5322.Builder{Writer: signer})
	if err != nil {
		signer.Close()
		return nil, err
	}
	err = signer.Close()
	if err != nil {
		return nil, err
	}
	signature := bytes.TrimSuffix([]byte(signer.Signature()), newline)
	return bytes.Split(signature, newline), nil
}

func (rw *Rewriter) rewriteField(chunks [][]byte, name, value []byte) ([][]byte, types.Stats) {
	logger := rw.logger.With(slog.String("field", string(name)))
	stats := types.Stats{Fields: 1}
	l, n := rw.parser.ParsePrefix(value)
	mailboxes := l.Mailboxes()
	stats.Addresses = len(mailboxes)
	if invalid := l.Invalid(); invalid > 0 || n < len(value) {
		logger.Warn(
			"field left as is",
			slog.Int("invalid", invalid),
			slog.Int("unread", len(value)-n),
			slog.String("value", string(value)),
		)
		stats.Preserved = 1
		return chunks, stats
	}
	for _, a := range mailboxes {
		if rw.apply(logger, a) {
			stats.Rewritten++
		}
	}
	if stats.Rewritten == 0 && !rw.canonicalize {
		return chunks, stats
	}
	return fold(name, l.String()), stats
}

func (rw *Rewriter) apply(logger *slog.Logger, a *address.Address) bool {
	old := a.Addr()
	for i, rule := range rw.Rules {
		rewritten := RegexpSubstitution(rule).Substitute(old)
		if rewritten == old {
			continue
		}
		logger := logger.With(slog.Int("precedence", i), slog.String("old", old), slog.String("new", rewritten))
		mailbox, domain, err := address.Split(rewritten)
		if err != nil {
			logger.Warn("substitution is not an addr-spec", slog.Any("error", err))
			return false
		}
		logger.Info("matched")
		a.Mailbox = &mailbox
		a.Domain = &domain
		return true
	}
	return false
}
