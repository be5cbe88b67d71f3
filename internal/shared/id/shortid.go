// Package id generates the prefixed short identifiers exposed through the
// API. Numeric primary keys never leave the engine; external callers only
// see these.
package id

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	// alphabet is base62: 0-9, A-Z, a-z.
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// DefaultLength is the random portion length of a generated SID.
	DefaultLength = 12
)

// SID prefixes per entity type.
const (
	PrefixPlan           = "pl"
	PrefixPlanAssignment = "pa"
	PrefixToken          = "tk"
	PrefixConsumer       = "cs"
)

func generate(length int) string {
	if length <= 0 {
		length = DefaultLength
	}

	result := make([]byte, length)
	alphabetLen := big.NewInt(int64(len(alphabet)))

	for i := range result {
		num, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken.
			panic(fmt.Sprintf("id: random source failed: %v", err))
		}
		result[i] = alphabet[num.Int64()]
	}

	return string(result)
}

func newSID(prefix string) string {
	return prefix + "_" + generate(DefaultLength)
}

// ParsePrefixedID splits "pl_xK9mP2vL3nQw" into its prefix and random part.
func ParsePrefixedID(prefixedID string) (prefix, shortID string, err error) {
	parts := strings.SplitN(prefixedID, "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid prefixed ID format: %s", prefixedID)
	}
	return parts[0], parts[1], nil
}

// ValidatePrefix checks that prefixedID carries the expected prefix.
func ValidatePrefix(prefixedID, expectedPrefix string) error {
	prefix, _, err := ParsePrefixedID(prefixedID)
	if err != nil {
		return err
	}
	if prefix != expectedPrefix {
		return fmt.Errorf("invalid prefix: expected %s, got %s", expectedPrefix, prefix)
	}
	return nil
}

// NewPlanSID generates a plan identifier.
func NewPlanSID() string {
	return newSID(PrefixPlan)
}

// NewPlanAssignmentSID generates a plan assignment identifier.
func NewPlanAssignmentSID() string {
	return newSID(PrefixPlanAssignment)
}

// NewTokenSID generates a capacity token identifier.
func NewTokenSID() string {
	return newSID(PrefixToken)
}

// NewConsumerSID generates a consumer identifier.
func NewConsumerSID() string {
	return newSID(PrefixConsumer)
}
