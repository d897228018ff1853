package uniqueid

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

const (
	// maxProbes bounds the counter-suffix search for slugs and usernames.
	maxProbes = 100
	// maxRedraws bounds the random-suffix redraws for account identifiers.
	maxRedraws = 25

	accountIDPrefixLen = 4
	accountIDDigits    = 6
)

// ErrGenerationExhausted is returned when no free candidate was found within
// the bounded number of attempts. Callers surface it as a server-side failure
// rather than looping forever under adversarial collision rates.
var ErrGenerationExhausted = errors.New("unique identifier generation exhausted")

// ExistsFunc reports whether a candidate identifier is already taken. The
// check is advisory only: the storage unique constraint remains the source of
// truth, and unique-violation on insert must be handled by retrying.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	dashCollapse = regexp.MustCompile(`-{2,}`)
)

// Slugify lowercases the value and collapses runs of non-alphanumerics into
// single dashes.
func Slugify(value string) string {
	s := strings.ToLower(strings.TrimSpace(value))
	s = nonSlugChars.ReplaceAllString(s, "-")
	s = dashCollapse.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Reserve probes base, base-1, base-2, ... until exists reports a free
// candidate. Used for taxonomy and product slugs.
func Reserve(ctx context.Context, base string, exists ExistsFunc) (string, error) {
	return probe(ctx, base, "-", exists)
}

// ReserveBare probes base, base1, base2, ... without a separator. Used for
// usernames, matching how they were historically derived.
func ReserveBare(ctx context.Context, base string, exists ExistsFunc) (string, error) {
	return probe(ctx, base, "", exists)
}

func probe(ctx context.Context, base, sep string, exists ExistsFunc) (string, error) {
	if base == "" {
		return "", fmt.Errorf("base value is required")
	}
	candidate := base
	for attempt := 1; attempt <= maxProbes; attempt++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check candidate %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%s%d", base, sep, attempt)
	}
	return "", ErrGenerationExhausted
}

// AccountID builds an opaque account identifier from the first four
// characters of the username (lowercased) plus six random digits. On
// collision the random suffix is redrawn, never incremented.
func AccountID(ctx context.Context, username string, exists ExistsFunc) (string, error) {
	prefix := strings.ToLower(username)
	if prefix == "" {
		return "", fmt.Errorf("username is required")
	}
	if len(prefix) > accountIDPrefixLen {
		prefix = prefix[:accountIDPrefixLen]
	}

	for attempt := 0; attempt < maxRedraws; attempt++ {
		suffix, err := randomDigits(accountIDDigits)
		if err != nil {
			return "", err
		}
		candidate := prefix + suffix
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check candidate %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrGenerationExhausted
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		digit, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("draw random digit: %w", err)
		}
		fmt.Fprintf(&b, "%d", digit.Int64())
	}
	return b.String(), nil
}
