// Package domain defines the typed identifiers shared across the thrift ledger.
//
// Typed IDs keep group ids, member identities, asset ids and token account
// addresses from being passed in each other's place. All Parse* functions are
// trust-boundary checks and return CodeBadRequest on failure.
package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "ahorro/pkg/domain-errors"
)

// maxKeyLength bounds principal, asset and address strings.
const maxKeyLength = 128

// ControlPrefix starts every derived pool address and the control identity
// that owns it. ParsePrincipal rejects it, so no caller can hold a pool's
// signing identity.
const ControlPrefix = "pool:"

// GroupID identifies a thrift group ledger.
type GroupID uuid.UUID

// NewGroupID returns a fresh random group id.
func NewGroupID() GroupID {
	return GroupID(uuid.New())
}

func (g GroupID) String() string { return uuid.UUID(g).String() }

func (g GroupID) IsNil() bool { return uuid.UUID(g) == uuid.Nil }

func (g GroupID) MarshalText() ([]byte, error) {
	return uuid.UUID(g).MarshalText()
}

func (g *GroupID) UnmarshalText(b []byte) error {
	parsed, err := ParseGroupID(string(b))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// ParseGroupID parses a non-nil UUID.
func ParseGroupID(s string) (GroupID, error) {
	if s == "" {
		return GroupID{}, dErrors.New(dErrors.CodeBadRequest, "group id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return GroupID{}, dErrors.New(dErrors.CodeBadRequest, "invalid group id")
	}
	if u == uuid.Nil {
		return GroupID{}, dErrors.New(dErrors.CodeBadRequest, "group id cannot be nil")
	}
	return GroupID(u), nil
}

// Principal is an authenticated identity: an administrator or a member.
type Principal string

func (p Principal) String() string { return string(p) }

func (p Principal) IsZero() bool { return p == "" }

// IsControl reports whether p is the control identity of a derived pool.
func (p Principal) IsControl() bool { return strings.HasPrefix(string(p), ControlPrefix) }

// ParsePrincipal validates an identity string. Identities in the reserved
// pool namespace are rejected.
func ParsePrincipal(s string) (Principal, error) {
	if err := validateKey("principal", s); err != nil {
		return "", err
	}
	if p := Principal(s); p.IsControl() {
		return "", dErrors.New(dErrors.CodeBadRequest, "principal uses the reserved "+ControlPrefix+" namespace")
	}
	return Principal(s), nil
}

// AssetID identifies the single fungible asset a group is denominated in.
type AssetID string

func (a AssetID) String() string { return string(a) }

// ParseAssetID validates an asset identifier.
func ParseAssetID(s string) (AssetID, error) {
	if err := validateKey("asset", s); err != nil {
		return "", err
	}
	return AssetID(s), nil
}

// Address identifies a token account held by the asset ledger.
type Address string

func (a Address) String() string { return string(a) }

// IsPool reports whether a is a derived pool address.
func (a Address) IsPool() bool { return strings.HasPrefix(string(a), ControlPrefix) }

// ParseAddress validates a token account address.
func ParseAddress(s string) (Address, error) {
	if err := validateKey("address", s); err != nil {
		return "", err
	}
	return Address(s), nil
}

// MemberKey is the deterministic slot of a member ledger within a group.
type MemberKey struct {
	Group  GroupID
	Member Principal
}

func (k MemberKey) String() string {
	return fmt.Sprintf("member/%s/%s", k.Group, k.Member)
}

func validateKey(kind, s string) error {
	if strings.TrimSpace(s) == "" {
		return dErrors.New(dErrors.CodeBadRequest, kind+" is required")
	}
	if len(s) > maxKeyLength {
		return dErrors.New(dErrors.CodeBadRequest, kind+" is too long")
	}
	if !utf8.ValidString(s) {
		return dErrors.New(dErrors.CodeBadRequest, kind+" must be valid UTF-8")
	}
	for _, r := range s {
		if !isKeyRune(r) {
			return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("%s contains invalid character %q", kind, r))
		}
	}
	return nil
}

func isKeyRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_', r == '.', r == ':':
		return true
	}
	return false
}
