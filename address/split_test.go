package address

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input   string
		mailbox string
		domain  string
		err     error
	}{
		{input: "john@example.com", mailbox: "john", domain: "example.com"},
		{input: " john . doe @ example.com ", mailbox: "john.doe", domain: "example.com"},
		{input: `"john doe"@example.com`, mailbox: "john doe", domain: "example.com"},
		{input: "a@[10.0.0.1]", mailbox: "a", domain: "[10.0.0.1]"},
		{input: "a@b (comment)", mailbox: "a", domain: "b"},
		{input: "", err: ErrMalformedAddress},
		{input: "   ", err: ErrMalformedAddress},
		{input: "john", err: ErrMalformedAddress},
		{input: "a@", err: ErrMalformedAddress},
		{input: "@b", err: ErrMalformedAddress},
		{input: "a@b c", err: ErrMalformedAddress},
		{input: "John <j@x>", err: ErrMalformedAddress},
		{input: "a@b, c@d", err: ErrMalformedAddress},
		{input: `"unterminated@x`, err: ErrMalformedAddress},
	}
	for i, c := range cases {
		c := c
		t.Run(fmt.Sprintf("#%d: %s", i, c.input), func(t *testing.T) {
			t.Parallel()
			mailbox, domain, err := Split(c.input)
			if c.err != nil {
				assert.ErrorIs(t, err, c.err)
				assert.Empty(t, mailbox)
				assert.Empty(t, domain)
				return
			}
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			assert.Equal(t, c.mailbox, mailbox)
			assert.Equal(t, c.domain, domain)
		})
	}
}

func TestSplitWriteRoundTrip(t *testing.T) {
	t.Parallel()

	for _, a := range []*Address{
		NewMailbox("", "", "john.doe", "example.com", ""),
		NewMailbox("", "", "john doe", "example.com", ""),
		NewMailbox("", "", `we"ird`, "example.com", ""),
		NewMailbox("", "", `back\slash`, "example.com", ""),
		NewMailbox("", "", "o'neil", "example.com", ""),
		NewMailbox("", "", "a", "[127.0.0.1]", ""),
	} {
		mailbox, domain, err := Split(Write(List{a}))
		if assert.NoError(t, err, "%s", a.Addr()) {
			assert.Equal(t, a.GetMailbox(), mailbox)
			assert.Equal(t, a.GetDomain(), domain)
		}
	}
}
