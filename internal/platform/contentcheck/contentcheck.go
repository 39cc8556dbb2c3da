// Package contentcheck sanitizes and validates free text sent through the
// chat relay.
package contentcheck

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const DefaultMaxRunes = 5000

type Reason string

const (
	ReasonEmpty      Reason = "empty"
	ReasonTooLong    Reason = "too_long"
	ReasonProhibited Reason = "prohibited_content"
	ReasonEncoding   Reason = "invalid_encoding"
)

type Error struct {
	Reason Reason
}

func (e *Error) Error() string {
	switch e.Reason {
	case ReasonEmpty:
		return "message cannot be empty"
	case ReasonTooLong:
		return "message too long"
	case ReasonEncoding:
		return "message is not valid utf-8"
	default:
		return "message contains prohibited content"
	}
}

var prohibited = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(<script|<iframe|<object|<embed|<img[^>]*onerror|javascript:)`),
	regexp.MustCompile(`(;.*\||\$\{|` + "`" + `)`),
}

// Sanitize strips NUL bytes and surrounding whitespace.
func Sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

// Validate checks already-sanitized content. Content is never truncated; an
// over-long message is rejected whole.
func Validate(content string, maxRunes int) error {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxRunes
	}
	if content == "" {
		return &Error{Reason: ReasonEmpty}
	}
	if !utf8.ValidString(content) {
		return &Error{Reason: ReasonEncoding}
	}
	if utf8.RuneCountInString(content) > maxRunes {
		return &Error{Reason: ReasonTooLong}
	}
	for _, re := range prohibited {
		if re.MatchString(content) {
			return &Error{Reason: ReasonProhibited}
		}
	}
	return nil
}
