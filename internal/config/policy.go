package config

import (
	"fmt"
	"strings"
)

// FailPolicy is the behaviour of a storage-backed check when its lookup
// itself fails.
type FailPolicy string

const (
	// FailOpen treats the check as passed and lets the request proceed.
	FailOpen FailPolicy = "fail-open"

	// FailClosed rejects the request.
	FailClosed FailPolicy = "fail-closed"
)

// UnmarshalText implements encoding.TextUnmarshaler, which both caarlos0/env
// and encoding/json use when decoding the policy.
func (p *FailPolicy) UnmarshalText(text []byte) error {
	switch FailPolicy(strings.ToLower(strings.TrimSpace(string(text)))) {
	case FailOpen:
		*p = FailOpen
	case FailClosed:
		*p = FailClosed
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFailPolicy, string(text))
	}
	return nil
}

// IsValid reports whether p is one of the known policies.
func (p FailPolicy) IsValid() bool {
	return p == FailOpen || p == FailClosed
}

func (p FailPolicy) String() string {
	return string(p)
}
