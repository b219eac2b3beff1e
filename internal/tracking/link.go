package tracking

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidURL          = errors.New("invalid url")
	ErrNotFound            = errors.New("tracked link not found")
	ErrUnknownToken        = errors.New("unknown token")
	ErrDuplicateToken      = errors.New("duplicate token")
	ErrTokenSpaceExhausted = errors.New("token space exhausted")
)

// Token is the opaque identifier that appears in a public tracking URL.
type Token string

// TrackedLink binds a token to the URL it was issued for.
type TrackedLink struct {
	Token       Token
	OriginalURL string
	CreatedAt   time.Time
}

// Registry owns the token -> TrackedLink mapping.
type Registry interface {
	// Register inserts the link iff its token is absent, otherwise it returns ErrDuplicateToken.
	Register(ctx context.Context, link *TrackedLink) error

	// Resolve returns ErrNotFound when the token was never issued.
	Resolve(ctx context.Context, token Token) (*TrackedLink, error)

	// List returns all links, newest first.
	List(ctx context.Context) ([]*TrackedLink, error)
}

// TrackingURL renders the public tracking URL of token under baseURL.
func TrackingURL(baseURL string, token Token) string {
	return strings.TrimRight(baseURL, "/") + "/r/" + string(token)
}
