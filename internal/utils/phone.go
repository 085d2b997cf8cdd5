package utils

import (
	"errors"
	"strings"
)

// ErrInvalidPhone is returned when a phone number does not reduce to
// exactly ten local digits.
var ErrInvalidPhone = errors.New("invalid phone number format")

// PhoneDigits strips every non-digit character from raw. The result is
// used both for dedup within a user's contact list and as the input to
// FormatPhone.
func PhoneDigits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteByte(byte(r))
		}
	}
	return b.String()
}

// FormatPhone normalizes a phone number to international format: strip
// all punctuation, require exactly ten remaining digits, prefix the
// configured country calling code (e.g. "+91"). Any other digit count
// fails with ErrInvalidPhone.
func FormatPhone(raw, countryCode string) (string, error) {
	digits := PhoneDigits(raw)
	if len(digits) != 10 {
		return "", ErrInvalidPhone
	}
	return countryCode + digits, nil
}
