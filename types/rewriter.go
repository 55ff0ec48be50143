package types

import (
	"io"
)

// Rewriter rewrites the address header fields of a message.
// It writes the rewritten message to the writer and reports what it did.
// The non-nil value of the error indicates the message could not be
// processed at all.
type Rewriter interface {
	Rewrite(w io.Writer, data []byte) (Stats, error)
}
