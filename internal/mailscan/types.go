// Package mailscan retrieves property-alert emails and recovers the single
// HTML payload each alert carries.
package mailscan

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDecode means the message's transport encoding was malformed.
	ErrDecode = errors.New("malformed transport encoding")

	// ErrMalformedBody means the message did not carry exactly one HTML part.
	ErrMalformedBody = errors.New("message body does not carry exactly one html part")
)

// Summary is the metadata needed to decide whether a message is worth
// fetching in full.
type Summary struct {
	ID      string
	Subject string
	Date    time.Time
}

// RawMessage is a fetched message body before MIME decoding. Exactly one of
// the two fields is set: Gmail hands back base64url text, IMAP hands back
// RFC822 bytes directly.
type RawMessage struct {
	Base64URL string
	RFC822    []byte
}

// Source lists recent messages and fetches their raw bodies.
type Source interface {
	ListRecent(ctx context.Context, window time.Duration) ([]Summary, error)
	RawBody(ctx context.Context, id string) (RawMessage, error)
}
