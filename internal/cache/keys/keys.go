// Package keys builds the storage and cache keys used across the service.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const (
	locationPrefix = "loc:"
	cellPrefix     = "cell:"
	queryPrefix    = "q:"
)

// LocationKey is the key of one location record.
func LocationKey(id string) string {
	return locationPrefix + sanitizeForKey(strings.TrimSpace(id))
}

// CellKey is the key of the set of location ids whose code starts with
// prefix. Prefixes are upper-cased so lookups are case-insensitive.
func CellKey(prefix string) string {
	return cellPrefix + strings.ToUpper(strings.TrimSpace(prefix))
}

// CellKeys returns the CellKey of every prefix of code, shortest first.
func CellKeys(code string) []string {
	code = strings.ToUpper(strings.TrimSpace(code))
	out := make([]string, 0, len(code))
	for i := 1; i <= len(code); i++ {
		out = append(out, cellPrefix+code[:i])
	}
	return out
}

// QueryKey identifies a cached neighbourhood query. The readable part of
// arg is truncated; the hash keeps keys distinct.
func QueryKey(op, code, arg string) string {
	argText := collapseASCIIWhitespace(arg)
	argSafe := sanitizeForKey(argText)

	const maxArgTextLen = 64
	if len(argSafe) > maxArgTextLen {
		argSafe = argSafe[:maxArgTextLen]
	}

	sum := xxhash.Sum64String(argText)
	return fmt.Sprintf("%s%s:%s:%s:h=%016x", queryPrefix, strings.ToLower(op), strings.ToUpper(code), argSafe, sum)
}

func sanitizeForKey(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '.' || r == '_' || r == '-' || r == '=':
			out = r
		default:
			// Any other rune (including ':' and non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

// converts any run of ASCII whitespace to a single space.
func collapseASCIIWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	wasWS := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f' {
			if !wasWS {
				b.WriteByte(' ')
				wasWS = true
			}
			continue
		}
		b.WriteRune(r)
		wasWS = false
	}
	return strings.TrimSpace(b.String())
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
