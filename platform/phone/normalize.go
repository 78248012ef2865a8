// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used for numbers written without a country prefix.
const DefaultRegion = "NL"

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	normalized, _ := Normalize(input, DefaultRegion)
	return normalized
}

// Normalize formats input to E.164 using region as the fallback country.
// ok is false when the number cannot be parsed or is not valid; the trimmed
// input is returned in that case.
func Normalize(input, region string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed, false
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return trimmed, false
	}

	return phonenumbers.Format(number, phonenumbers.E164), true
}
