// Package id generates prefixed identifiers for cards, decks and reading sessions.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes used across the service.
const (
	PrefixCard    = "card"
	PrefixDeck    = "deck"
	PrefixSession = "sess"
	PrefixRequest = "req"
)

// Generate creates a prefixed unique ID using NanoID,
// e.g. "card-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
