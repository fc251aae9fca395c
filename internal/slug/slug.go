// Package slug produces article identifiers and URL-safe slugs.
//
// Everything here is a pure function of its inputs: callers pass the
// current id or slug set (as a slice or a lookup func) and own whatever
// locking makes that set stable.
package slug

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// TemporaryPrefix marks a slug as provisional until generation succeeds
const TemporaryPrefix = "temp-"

const temporaryTokenLen = 8

var (
	slugRegex      = regexp.MustCompile(`^[\p{L}\p{N}]+(?:-[\p{L}\p{N}]+)*$`)
	temporaryRegex = regexp.MustCompile(`^temp-[a-z0-9]{8}$`)
)

// NextID returns an id strictly greater than every id in existing
func NextID(existing []int64) int64 {
	var max int64
	for _, id := range existing {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// Temporary returns a short random provisional slug such as "temp-3f9a1c0b"
func Temporary() string {
	token := strings.ReplaceAll(uuid.New().String(), "-", "")
	return TemporaryPrefix + token[:temporaryTokenLen]
}

// TemporaryUnique returns a provisional slug not reported by exists
func TemporaryUnique(exists func(string) bool) string {
	for {
		s := Temporary()
		if exists == nil || !exists(s) {
			return s
		}
	}
}

// IsTemporary reports whether s has the provisional slug shape
func IsTemporary(s string) bool {
	return temporaryRegex.MatchString(s)
}

// Normalize lower-cases topic, turns whitespace runs into single hyphens
// and drops anything that is not a letter, digit or separator.
func Normalize(topic string) string {
	lowered := strings.ToLower(strings.TrimSpace(topic))

	var b strings.Builder
	pendingHyphen := false
	for _, r := range lowered {
		switch {
		case unicode.IsSpace(r) || r == '-' || r == '_':
			pendingHyphen = b.Len() > 0
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingHyphen {
				b.WriteByte('-')
				pendingHyphen = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Derive builds the permanent slug for an article from its topic.
// The result is deterministic for the same (topic, id, existing set).
func Derive(topic string, id int64, exists func(string) bool) string {
	return Unique(Normalize(topic), id, exists)
}

// Unique returns base if it is free, otherwise base with the article id
// appended, then with a counter after the id until no collision remains.
func Unique(base string, id int64, exists func(string) bool) string {
	if base == "" {
		base = fmt.Sprintf("article-%d", id)
	}
	if exists == nil || !exists(base) {
		return base
	}

	candidate := fmt.Sprintf("%s-%d", base, id)
	for n := 2; exists(candidate); n++ {
		candidate = fmt.Sprintf("%s-%d-%d", base, id, n)
	}
	return candidate
}

// Valid reports whether s is a lower-case kebab-case slug
func Valid(s string) bool {
	return slugRegex.MatchString(s) && strings.ToLower(s) == s
}

// SetLookup adapts a set to the lookup func the helpers above take
func SetLookup(set map[string]struct{}) func(string) bool {
	return func(s string) bool {
		_, ok := set[s]
		return ok
	}
}
