package main

import (
	"bufio"
	"context"
	"crypto"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/emersion/go-msgauth/dkim"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/moriyoshi/mailaddr/address"
	"github.com/moriyoshi/mailaddr/audit"
	"github.com/moriyoshi/mailaddr/internal/charset"
	"github.com/moriyoshi/mailaddr/rewriter"
	"github.com/moriyoshi/mailaddr/types"
)

type Globals struct {
	ctx    context.Context
	logger *slog.Logger
	stdin  io.Reader
	stdout io.Writer
}

func encode(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		return json.NewEncoder(w).Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported format: %s", format)
}

type ParseCmd struct {
	Lists       []string `arg:"" optional:"" name:"list" help:"Address lists to parse. Lines are read from standard input if none is given."`
	Max         uint     `name:"max" help:"Maximum number of records per list (0 for no limit)." default:"0"`
	FillMissing bool     `name:"fill-missing" help:"Fill missing parts of invalid addresses with placeholders." env:"MAILADDR_FILL_MISSING" default:"false"`
	Format      string   `name:"format" help:"Output format." default:"text" enum:"text,json,yaml"`
	Decode      bool     `name:"decode" help:"Decode encoded-words in display names (text format only)." default:"false"`
}

func (cmd *ParseCmd) inputs(g *Globals) ([]string, error) {
	if len(cmd.Lists) > 0 {
		return cmd.Lists, nil
	}
	var lines []string
	sc := bufio.NewScanner(g.stdin)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

func (cmd *ParseCmd) Run(g *Globals) error {
	inputs, err := cmd.inputs(g)
	if err != nil {
		return err
	}
	p := &address.AddressParser{
		MaxAddresses: cmd.Max,
		FillMissing:  cmd.FillMissing,
		Logger:       g.logger,
	}
	for _, input := range inputs {
		l := p.ParseList(input)
		if cmd.Format != "text" {
			if l == nil {
				l = address.List{}
			}
			if err := encode(g.stdout, cmd.Format, l); err != nil {
				return err
			}
			continue
		}
		out := l.String()
		if cmd.Decode {
			out = charset.DecodeHeader(out)
		}
		if n := l.Invalid(); n > 0 {
			fmt.Fprintf(g.stdout, "%s\t(%d invalid)\n", out, n)
		} else {
			fmt.Fprintln(g.stdout, out)
		}
	}
	return nil
}

type SplitCmd struct {
	Address string `arg:"" name:"addr-spec" help:"Address to split into its local part and domain."`
}

func (cmd *SplitCmd) Run(g *Globals) error {
	mailbox, domain, err := address.Split(cmd.Address)
	if err != nil {
		return fmt.Errorf("%q: %w", cmd.Address, err)
	}
	fmt.Fprintf(g.stdout, "%s\t%s\n", mailbox, domain)
	return nil
}

type ComposeCmd struct {
	Mailbox string `arg:"" name:"mailbox" help:"Unquoted local part."`
	Domain  string `arg:"" name:"domain" help:"Domain."`
}

func (cmd *ComposeCmd) Run(g *Globals) error {
	fmt.Fprintln(g.stdout, address.Compose(cmd.Mailbox, cmd.Domain))
	return nil
}

func loadSigner(keyFile string) (crypto.Signer, error) {
	b, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(b)
	if block == nil || !strings.HasSuffix(block.Type, "PRIVATE KEY") {
		return nil, fmt.Errorf("no private key found in %s", keyFile)
	}
	var key interface{}
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	default:
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	}
	if err != nil {
		return nil, err
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("unsupported private key in %s", keyFile)
	}
	return signer, nil
}

type RewriteCmd struct {
	Message      string `arg:"" optional:"" name:"message" help:"Path to the message to rewrite. Standard input is read if omitted." type:"existingfile"`
	Rules        string `name:"rules" help:"Path to the rewrite rules file." env:"MAILADDR_REWRITE_RULES" default:"rewrite-rules.yaml"`
	Canonicalize bool   `name:"canonicalize" help:"Rewrite every address field in canonical form." env:"MAILADDR_CANONICALIZE" default:"false"`
	FillMissing  bool   `name:"fill-missing" help:"Fill missing parts of invalid addresses with placeholders." env:"MAILADDR_FILL_MISSING" default:"false"`
	DKIMKey      string `name:"dkim-key" help:"Path to the PEM private key used to re-sign the message." env:"MAILADDR_DKIM_KEY" optional:""`
	DKIMDomain   string `name:"dkim-domain" help:"Signing domain." env:"MAILADDR_DKIM_DOMAIN" optional:""`
	DKIMSelector string `name:"dkim-selector" help:"Signing selector." env:"MAILADDR_DKIM_SELECTOR" optional:""`
}

func (cmd *RewriteCmd) Run(g *Globals) error {
	options := []rewriter.RewriterOptionFunc{
		rewriter.WithLogger(g.logger),
		rewriter.WithCanonicalize(cmd.Canonicalize),
		rewriter.WithFillMissing(cmd.FillMissing),
	}
	if cmd.DKIMKey != "" {
		if cmd.DKIMDomain == "" || cmd.DKIMSelector == "" {
			return fmt.Errorf("--dkim-domain and --dkim-selector are required with --dkim-key")
		}
		signer, err := loadSigner(cmd.DKIMKey)
		if err != nil {
			return err
		}
		options = append(options, rewriter.WithDKIMSignOptions(&dkim.SignOptions{
			Domain:   cmd.DKIMDomain,
			Selector: cmd.DKIMSelector,
			Signer:   signer,
		}))
	}
	var rw types.Rewriter
	rw, err := rewriter.NewRewriterFromYAMLFile(cmd.Rules, options...)
	if err != nil {
		return err
	}
	var data []byte
	if cmd.Message != "" {
		data, err = os.ReadFile(cmd.Message)
	} else {
		data, err = io.ReadAll(g.stdin)
	}
	if err != nil {
		return err
	}
	stats, err := rw.Rewrite(g.stdout, data)
	if err != nil {
		return err
	}
	g.logger.Info("message rewritten", slog.Any("stats", stats))
	return nil
}

type AuditCmd struct {
	Mbox        string `arg:"" name:"mbox" help:"Path to the mbox file to audit." type:"existingfile"`
	Workers     int    `name:"workers" help:"Number of messages parsed concurrently." env:"MAILADDR_WORKERS" default:"4"`
	FillMissing bool   `name:"fill-missing" help:"Fill missing parts of invalid addresses with placeholders." env:"MAILADDR_FILL_MISSING" default:"false"`
	Decode      bool   `name:"decode" help:"Decode encoded-words in reported values." default:"true" negatable:""`
	Format      string `name:"format" help:"Output format." default:"text" enum:"text,json,yaml"`
}

func (cmd *AuditCmd) Run(g *Globals) error {
	a, err := audit.NewAuditor(
		audit.WithLogger(g.logger),
		audit.WithWorkers(cmd.Workers),
		audit.WithFillMissing(cmd.FillMissing),
		audit.WithDecode(cmd.Decode),
	)
	if err != nil {
		return err
	}
	f, err := os.Open(cmd.Mbox)
	if err != nil {
		return err
	}
	defer f.Close()
	findings, err := a.Run(g.ctx, f)
	if err != nil {
		return err
	}
	if cmd.Format != "text" {
		return encode(g.stdout, cmd.Format, findings)
	}
	for _, finding := range findings {
		value := finding.Value
		if finding.Decoded != "" {
			value = finding.Decoded
		}
		fmt.Fprintf(g.stdout, "#%d %s %s: %s\n\t=> %s\n", finding.Message, finding.MessageID, finding.Field, value, finding.Canonical)
	}
	return nil
}

type CLI struct {
	LogLevel slog.Level `name:"log-level" help:"Log level." env:"MAILADDR_LOG_LEVEL" default:"WARN" enum:"DEBUG,INFO,WARN,ERROR"`

	Parse   ParseCmd   `cmd:"" help:"Parse address lists and print them in canonical form."`
	Split   SplitCmd   `cmd:"" help:"Split an addr-spec into its local part and domain."`
	Compose ComposeCmd `cmd:"" help:"Compose an addr-spec from a local part and a domain."`
	Rewrite RewriteCmd `cmd:"" help:"Rewrite the address fields of a message."`
	Audit   AuditCmd   `cmd:"" help:"Report malformed address fields found in an mbox."`
}

func (CLI *CLI) initLogger(*kong.Context) *slog.Logger {
	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) {
		handler = tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{Level: CLI.LogLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: CLI.LogLevel})
	}
	return slog.New(handler)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()
	var CLI CLI
	kongCtx := kong.Parse(&CLI, kong.Name("mailaddr"), kong.UsageOnError())
	logger := CLI.initLogger(kongCtx)
	kongCtx.FatalIfErrorf(kongCtx.Run(&Globals{
		ctx:    ctx,
		logger: logger,
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}))
}
