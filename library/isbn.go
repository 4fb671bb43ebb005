package library

import (
	"strings"
	"unicode"
)

// NormalizeISBN strips hyphens and whitespace from a raw identifier as typed by a librarian.
// Letters are upper-cased so that a trailing ISBN-10 check character "x" compares equal to "X".
func NormalizeISBN(raw string) (ISBN, error) {
	normalized := strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}

		return unicode.ToUpper(r)
	}, raw)

	if normalized == "" {
		return "", ErrEmptyISBN
	}

	return normalized, nil
}

// IsNumericISBN reports whether a normalized identifier consists of digits only,
// allowing an "X" as the last character (ISBN-10 check digit).
func IsNumericISBN(isbn ISBN) bool {
	if isbn == "" {
		return false
	}

	for i, r := range isbn {
		if r >= '0' && r <= '9' {
			continue
		}

		if r == 'X' && i == len(isbn)-1 {
			continue
		}

		return false
	}

	return true
}
