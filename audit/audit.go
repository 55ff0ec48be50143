// Package audit scans a mailbox for address header fields that only parse in
// tolerant mode.
package audit

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"github.com/emersion/go-mbox"
	"golang.org/x/sync/errgroup"

	"github.com/moriyoshi/mailaddr/address"
	"github.com/moriyoshi/mailaddr/internal/charset"
	"github.com/moriyoshi/mailaddr/internal/logging"
	"github.com/moriyoshi/mailaddr/internal/rfc5322"
	"github.com/moriyoshi/mailaddr/types"
)

type Auditor struct {
	logger      *slog.Logger
	parser      *address.AddressParser
	workers     int
	fillMissing bool
	decode      bool
}

type AuditorOptionFunc func(*Auditor) (*Auditor, error)

func WithLogger(logger *slog.Logger) AuditorOptionFunc {
	return func(a *Auditor) (*Auditor, error) {
		a.logger = logging.OrDiscard(logger)
		return a, nil
	}
}

// WithWorkers sets the number of messages parsed concurrently.
func WithWorkers(n int) AuditorOptionFunc {
	return func(a *Auditor) (*Auditor, error) {
		if n < 1 {
			return nil, fmt.Errorf("invalid number of workers: %d", n)
		}
		a.workers = n
		return a, nil
	}
}

func WithFillMissing(enabled bool) AuditorOptionFunc {
	return func(a *Auditor) (*Auditor, error) {
		a.fillMissing = enabled
		return a, nil
	}
}

// WithDecode enables decoding of encoded-words in reported values.
func WithDecode(enabled bool) AuditorOptionFunc {
	return func(a *Auditor) (*Auditor, error) {
		a.decode = enabled
		return a, nil
	}
}

func NewAuditor(options ...AuditorOptionFunc) (*Auditor, error) {
	a := &Auditor{
		logger:  logging.OrDiscard(nil),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, option := range options {
		var err error
		a, err = option(a)
		if err != nil {
			return nil, err
		}
	}
	a.parser = &address.AddressParser{
		FillMissing: a.fillMissing,
		Logger:      a.logger,
	}
	return a, nil
}

var (
	messageIDB  = []byte("Message-ID")
	returnPathB = []byte("Return-Path")
)

// Run reads every message of the mbox in r and returns the findings ordered
// by message, then by field.
func (a *Auditor) Run(ctx context.Context, r io.Reader) ([]types.Finding, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	var results []*[]types.Finding
	rd := mbox.NewReader(r)
	var readErr error
	for i := 0; gctx.Err() == nil; i++ {
		mr, err := rd.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			readErr = fmt.Errorf("failed to read message %d: %w", i, err)
			break
		}
		data, err := io.ReadAll(mr)
		if err != nil {
			readErr = fmt.Errorf("failed to read message %d: %w", i, err)
			break
		}
		res := new([]types.Finding)
		results = append(results, res)
		i := i
		g.Go(func() error {
			f, err := a.auditMessage(i, data)
			if err != nil {
				return fmt.Errorf("message %d: %w", i, err)
			}
			*res = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, readErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var findings []types.Finding
	for _, res := range results {
		findings = append(findings, *res...)
	}
	a.logger.Info("audit finished", slog.Int("messages", len(results)), slog.Int("findings", len(findings)))
	return findings, nil
}

func (a *Auditor) auditMessage(i int, data []byte) ([]types.Finding, error) {
	var findings []types.Finding
	var messageID string
	err := rfc5322.Scan(
		bufio.NewReader(bytes.NewReader(data)),
		rfc5322.ScannerHandlerFromFunctions(
			nil,
			func(chunks [][]byte) error {
				name, value, ok := rfc5322.SplitField(chunks)
				if !ok {
					return nil
				}
				v := strings.TrimSpace(string(value))
				if bytes.EqualFold(name, messageIDB) {
					messageID = v
					return nil
				}
				if !address.IsAddressHeader(string(name)) {
					return nil
				}
				// the null reverse-path is not an address but is expected here
				if bytes.EqualFold(name, returnPathB) && v == "<>" {
					return nil
				}
				l := a.parser.ParseListBytes(value)
				n := l.Invalid()
				if n == 0 {
					return nil
				}
				f := types.Finding{
					Message:   i,
					Field:     string(name),
					Value:     v,
					Canonical: l.String(),
					Invalid:   n,
				}
				if a.decode {
					if d := charset.DecodeHeader(v); d != v {
						f.Decoded = d
					}
				}
				findings = append(findings, f)
				return nil
			},
			nil,
		),
	)
	if err != nil {
		return nil, err
	}
	for j := range findings {
		findings[j].MessageID = messageID
	}
	if len(findings) > 0 {
		a.logger.Debug("invalid address fields", slog.Int("message", i), slog.String("message_id", messageID), slog.Int("fields", len(findings)))
	}
	return findings, nil
}
