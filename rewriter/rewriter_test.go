package rewriter

import (
	"bufio"
	"bytes"
	"crypto"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"math/rand"
	"net/textproto"
	"regexp"
	"testing"
	"time"

	"github.com/emersion/go-msgauth/dkim"
	"github.com/stretchr/testify/assert"

	"github.com/moriyoshi/mailaddr/types"
)

func readHeader(t *testing.T, b []byte) textproto.MIMEHeader {
	rdr := textproto.NewReader(bufio.NewReader(bytes.NewReader(b)))
	h, err := rdr.ReadMIMEHeader()
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	return h
}

func TestRewriter(t *testing.T) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.New(rand.NewSource(0)))
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewRewriter(
		Rules{
			{R: regexp.MustCompile(`^foo(?:\+([^@]+))?@example\.com$`), S: "bar$1@example.com"},
		},
		WithDKIMSignOptions(&dkim.SignOptions{
			Domain:       "example.com",
			Selector:     "selector",
			Identifier:   "",
			Signer:       privKey,
			Hash:         crypto.SHA256,
			HeaderKeys:   []string{"From", "To", "Subject", "Content-Type", "MIME-Version", "Message-ID", "Date"},
			Expiration:   time.Time{},
			QueryMethods: []dkim.QueryMethod{dkim.QueryMethodDNSTXT},
		}),
	)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	var out bytes.Buffer
	stats, err := r.Rewrite(
		&out,
		[]byte("From: sender@example.com\r\nTo: Foo <foo+tag@example.com>,\r\n irrelevant@example.com\r\nDKIM-Signature: stale\r\nSubject: hi\r\n\r\nHello, World!"),
	)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, types.Stats{Fields: 2, Addresses: 3, Rewritten: 1}, stats)
	h := readHeader(t, out.Bytes())
	assert.Equal(t, "Foo <bartag@example.com>, irrelevant@example.com", h.Get("To"))
	assert.Equal(t, "sender@example.com", h.Get("From"))
	assert.Len(t, h.Values("DKIM-Signature"), 1)
	assert.NotEqual(t, "stale", h.Get("DKIM-Signature"))
	assert.True(t, bytes.HasSuffix(out.Bytes(), []byte("\r\n\r\nHello, World!")))
	v, err := dkim.VerifyWithOptions(bytes.NewReader(out.Bytes()), &dkim.VerifyOptions{
		LookupTXT: func(domain string) ([]string, error) {
			return []string{fmt.Sprintf("v=DKIM1; k=ed25519; p=%s", base64.StdEncoding.EncodeToString(pubKey))}, nil
		},
	})
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	if assert.Len(t, v, 1) {
		assert.NoError(t, v[0].Err)
	}
}

func TestRewriterPreservesInvalidFields(t *testing.T) {
	t.Parallel()

	r, err := NewRewriter(Rules{
		{R: regexp.MustCompile(`.*`), S: "x@example.com"},
	})
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	input := "To: Foo <foo@example.com, bar@example.com\r\nDKIM-Signature: kept\r\n\r\nbody"
	var out bytes.Buffer
	stats, err := r.Rewrite(&out, []byte(input))
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, types.Stats{Fields: 1, Addresses: 2, Preserved: 1}, stats)
	assert.Equal(t, input, out.String())
}

func TestRewriterCanonicalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		canonicalize bool
		expected     string
	}{
		{false, "Subject: x\r\nCc: John   Doe <j@x.com>\r\nTo: Team: a@x.com, b@x.com;\r\n\r\n"},
		{true, "Subject: x\r\nCc: \"John Doe\" <j@x.com>\r\nTo: Team: a@x.com, b@x.com;\r\n\r\n"},
	}
	for _, c := range cases {
		r, err := NewRewriter(nil, WithCanonicalize(c.canonicalize))
		if !assert.NoError(t, err) {
			t.FailNow()
		}
		var out bytes.Buffer
		stats, err := r.Rewrite(&out, []byte("Subject: x\r\nCc: John   Doe <j@x.com>\r\nTo: Team: a@x.com, b@x.com;\r\n\r\n"))
		if assert.NoError(t, err) {
			assert.Equal(t, c.expected, out.String())
			assert.Equal(t, types.Stats{Fields: 2, Addresses: 3}, stats)
		}
	}
}

func TestRewriterPreservesPartlyReadFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		max          uint
		canonicalize bool
		input        string
	}{
		{
			name:  "address cap",
			max:   1,
			input: "To: a@b, c@d, e@f\r\n\r\nbody",
		},
		{
			name:         "address cap with canonicalize",
			max:          1,
			canonicalize: true,
			input:        "To: a@b, c@d, e@f\r\n\r\nbody",
		},
		{
			name:         "trailing text",
			canonicalize: true,
			input:        "To: a@b junk\r\n\r\nbody",
		},
	}
	for i, c := range cases {
		c := c
		t.Run(fmt.Sprintf("#%d: %s", i, c.name), func(t *testing.T) {
			t.Parallel()
			r, err := NewRewriter(
				Rules{{R: regexp.MustCompile(`^a@b$`), S: "z@b"}},
				WithMaxAddresses(c.max),
				WithCanonicalize(c.canonicalize),
			)
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			var out bytes.Buffer
			stats, err := r.Rewrite(&out, []byte(c.input))
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			assert.Equal(t, types.Stats{Fields: 1, Addresses: 1, Preserved: 1}, stats)
			assert.Equal(t, c.input, out.String())
		})
	}
}

func TestRewriterDropsSignaturesOfChangedMessages(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		canonicalize bool
		input        string
		expected     string
	}{
		{
			name:         "refolded by canonicalize",
			canonicalize: true,
			input:        "Cc: John   Doe <j@x.com>\r\nDKIM-Signature: v=1; b=old\r\n\r\nbody",
			expected:     "Cc: \"John Doe\" <j@x.com>\r\n\r\nbody",
		},
		{
			name:         "already canonical",
			canonicalize: true,
			input:        "Cc: a@x.com, b@x.com\r\nDKIM-Signature: v=1; b=old\r\n\r\nbody",
			expected:     "Cc: a@x.com, b@x.com\r\nDKIM-Signature: v=1; b=old\r\n\r\nbody",
		},
		{
			name:     "untouched",
			input:    "Cc: John   Doe <j@x.com>\r\nDKIM-Signature: v=1; b=old\r\n\r\nbody",
			expected: "Cc: John   Doe <j@x.com>\r\nDKIM-Signature: v=1; b=old\r\n\r\nbody",
		},
	}
	for i, c := range cases {
		c := c
		t.Run(fmt.Sprintf("#%d: %s", i, c.name), func(t *testing.T) {
			t.Parallel()
			r, err := NewRewriter(
				Rules{{R: regexp.MustCompile(`^nobody@`), S: "somebody@x.com"}},
				WithCanonicalize(c.canonicalize),
			)
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			var out bytes.Buffer
			stats, err := r.Rewrite(&out, []byte(c.input))
			if assert.NoError(t, err) {
				assert.Equal(t, 0, stats.Rewritten)
				assert.Equal(t, c.expected, out.String())
			}
		})
	}
}

func TestRewriterRejectsBadSubstitution(t *testing.T) {
	t.Parallel()

	r, err := NewRewriter(Rules{
		{R: regexp.MustCompile(`@example\.com$`), S: " at example.com"},
	}, WithMaxAddresses(1))
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	var out bytes.Buffer
	stats, err := r.Rewrite(&out, []byte("To: a@example.com\r\n\r\n"))
	if assert.NoError(t, err) {
		assert.Equal(t, 0, stats.Rewritten)
		assert.Equal(t, "To: a@example.com\r\n\r\n", out.String())
	}
}

func TestNewRewriterFromYAML(t *testing.T) {
	t.Parallel()

	r, err := NewRewriterFromYAML([]byte("- match: '^(.*)@old\\.example$'\n  substitution: '$1@new.example'\n"), WithFillMissing(true))
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	var out bytes.Buffer
	stats, err := r.Rewrite(&out, []byte("From: Ann <ann@old.example>\r\n\r\nhi"))
	if assert.NoError(t, err) {
		assert.Equal(t, 1, stats.Rewritten)
		assert.Equal(t, "From: Ann <ann@new.example>\r\n\r\nhi", out.String())
	}

	_, err = NewRewriterFromYAMLFile("testdata/does-not-exist.yaml")
	assert.Error(t, err)
}
