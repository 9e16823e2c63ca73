// Package refcode generates the short reference codes payers copy into the
// note of a bank-side payment so staff can match it to a fee transaction.
package refcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/jaevor/go-nanoid"
)

const (
	// DefaultLength is the total code length, seed prefix included.
	DefaultLength = 8
	// DefaultAttempts bounds the lookup-then-retry loop on collisions.
	DefaultAttempts = 5

	prefixLength  = 3
	defaultPrefix = "STU"
	// Upper-case letters and digits minus 0, O, 1 and I, which payers misread.
	alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// ErrCodeGenerationExhausted is returned when every attempt collided with an
// existing code in the organization.
var ErrCodeGenerationExhausted = errors.New("reference code generation exhausted")

// Lookup reports whether a code is already taken within an organization.
type Lookup interface {
	ReferenceExists(ctx context.Context, organizationID, code string) (bool, error)
}

type Generator struct {
	lookup   Lookup
	attempts int
	length   int
	random   func() string
	pattern  *regexp.Regexp
}

type Option func(*Generator)

// WithAttempts overrides DefaultAttempts. Values below 1 are ignored.
func WithAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.attempts = n
		}
	}
}

// WithLength overrides DefaultLength. The length must leave room for at
// least one random character after the seed prefix.
func WithLength(n int) Option {
	return func(g *Generator) {
		if n > prefixLength {
			g.length = n
		}
	}
}

// WithRandom replaces the random suffix source. Used by tests to force collisions.
func WithRandom(fn func() string) Option {
	return func(g *Generator) {
		g.random = fn
	}
}

func New(lookup Lookup, opts ...Option) (*Generator, error) {
	g := &Generator{
		lookup:   lookup,
		attempts: DefaultAttempts,
		length:   DefaultLength,
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.random == nil {
		random, err := nanoid.CustomASCII(alphabet, g.length-prefixLength)
		if err != nil {
			return nil, fmt.Errorf("creating code source: %w", err)
		}

		g.random = random
	}

	g.pattern = regexp.MustCompile(fmt.Sprintf(`\b[A-Z]{%d}[A-HJ-NP-Z2-9]{%d}\b`, prefixLength, g.length-prefixLength))

	return g, nil
}

// Generate returns a code that no transaction of the organization uses yet.
// Uniqueness rests on the store lookup and the store's unique index, so
// concurrent callers need no coordination.
func (g *Generator) Generate(ctx context.Context, organizationID, seed string) (string, error) {
	for attempt := 1; attempt <= g.attempts; attempt++ {
		code := g.Candidate(seed)

		exists, err := g.lookup.ReferenceExists(ctx, organizationID, code)
		if err != nil {
			return "", fmt.Errorf("checking reference code: %w", err)
		}

		if !exists {
			return code, nil
		}

		slog.Debug("reference code collision", "organization_id", organizationID, "code", code, "attempt", attempt)
	}

	return "", fmt.Errorf("%w: %d attempts in organization %s", ErrCodeGenerationExhausted, g.attempts, organizationID)
}

// Candidate returns a well-formed code without checking the store.
func (g *Generator) Candidate(seed string) string {
	return Prefix(seed) + strings.ToUpper(g.random())
}

// Prefix derives the readable part of a code from a seed such as a student
// name or admission number: its first three letters, upper-cased, padded from
// "STU" when the seed is short.
func Prefix(seed string) string {
	var b strings.Builder

	for _, r := range seed {
		if b.Len() == prefixLength {
			break
		}

		if r <= unicode.MaxASCII && unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}

	letters := b.String()

	return letters + defaultPrefix[len(letters):]
}

// Find returns every word of s shaped like a code of this generator's length.
// Statement descriptions are upper-cased first since banks vary in casing.
func (g *Generator) Find(s string) []string {
	return g.pattern.FindAllString(strings.ToUpper(s), -1)
}

// Normalize upper-cases a code typed by a human and strips the separators
// payment apps sometimes insert.
func Normalize(code string) string {
	return strings.ToUpper(strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(code)))
}
