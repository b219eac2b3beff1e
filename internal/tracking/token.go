package tracking

import (
	"fmt"

	"github.com/jaevor/go-nanoid"
)

// MinTokenLength keeps the token space at or above 2^48 with nanoid's 64 symbol alphabet.
const MinTokenLength = 8

// TokenGenerator produces a fresh random token on every call.
type TokenGenerator func() string

// NewTokenGenerator returns a crypto-random, URL-safe generator of the given length.
func NewTokenGenerator(length int) (TokenGenerator, error) {
	if length < MinTokenLength {
		return nil, fmt.Errorf("token length %d is below minimum %d", length, MinTokenLength)
	}

	gen, err := nanoid.Standard(length)
	if err != nil {
		return nil, err
	}

	return gen, nil
}
