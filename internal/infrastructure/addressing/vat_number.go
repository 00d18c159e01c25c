package addressing

import (
	"strings"

	"github.com/erp/reversecharge/internal/domain/taxation"
)

// PrefixVatNumberParser splits a VAT number into its country prefix and the national part.
// Whitespace, dots and dashes are ignored and letters are upper-cased, so "de 123.456-789"
// splits into "DE" and "123456789". It does not validate checksums.
type PrefixVatNumberParser struct{}

// NewPrefixVatNumberParser creates a parser
func NewPrefixVatNumberParser() PrefixVatNumberParser {
	return PrefixVatNumberParser{}
}

// Split implements taxation.VatNumberParser
func (PrefixVatNumberParser) Split(vatNumber string) (prefix, remainder string, ok bool) {
	normalized := Normalize(vatNumber)
	if len(normalized) < 3 {
		return "", "", false
	}

	prefix, remainder = normalized[:2], normalized[2:]
	if !isUpperAlpha(prefix) || !isAlphanumeric(remainder) {
		return "", "", false
	}
	return prefix, remainder, true
}

// Normalize upper-cases vatNumber and drops whitespace, dots and dashes
func Normalize(vatNumber string) string {
	var b strings.Builder
	b.Grow(len(vatNumber))
	for _, r := range vatNumber {
		switch {
		case r == '.' || r == '-' || r == ' ' || r == '\t' || r == '\n' || r == '\r':
			continue
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isUpperAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

func isAlphanumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

var _ taxation.VatNumberParser = PrefixVatNumberParser{}
