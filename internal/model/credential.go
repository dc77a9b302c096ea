package model

import (
	"time"
)

// CredentialPrefix namespaces every issued API key token.
const CredentialPrefix = "bua_"

// DefaultCredentialTTLDays is the expiry horizon applied when the caller does
// not request one.
const DefaultCredentialTTLDays = 30

// Credential is an opaque bearer token granting API access, with issuance
// time, expiry, active flag and usage statistics.
type Credential struct {
	Token      string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Active     bool
	LastUsedAt *time.Time
	UsageCount int
}

// Valid reports whether the credential grants access at the given instant.
// A credential is valid iff it is active and not past its expiry.
func (c *Credential) Valid(now time.Time) bool {
	return c.Active && !now.After(c.ExpiresAt)
}
