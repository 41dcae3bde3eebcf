package identity

import (
	"errors"
	"strings"
)

const (
	// UserSuffix terminates every individual WhatsApp ID.
	UserSuffix = "@c.us"
	// GroupSuffix terminates every group WhatsApp ID.
	GroupSuffix = "@g.us"

	countryPrefix = "254"
	minDigits     = 12
)

var ErrInvalidIdentity = errors.New("invalid identity")

// Canonicalize turns a raw phone number (or an already-canonical individual ID)
// into a canonical individual WhatsApp ID: digits only, leading zero replaced by
// the 254 country prefix, UserSuffix appended.
func Canonicalize(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	number := digits.String()
	if strings.HasPrefix(number, "0") {
		number = countryPrefix + number[1:]
	}
	if !strings.HasPrefix(number, countryPrefix) || len(number) < minDigits {
		return "", ErrInvalidIdentity
	}

	return number + UserSuffix, nil
}

// IsGroup reports whether id is a group correspondent.
func IsGroup(id string) bool {
	return strings.HasSuffix(id, GroupSuffix)
}
