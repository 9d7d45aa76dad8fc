// Package callmeta extracts caller metadata from call-recorder filenames.
//
// Recorder apps encode the caller, phone number and call direction into the
// uploaded filename with no fixed convention, e.g.
//
//	John Smith (+15551234567)_20250101.m4a
//	Incoming_5551234567_20250101.wav
//
// Extraction is best effort: fields that cannot be derived are left nil and
// no input ever produces an error.
package callmeta

import (
	"regexp"
	"strings"
)

// UnknownCaller marks a recording whose caller name could not be determined.
// It is a real stored value, distinct from an absent name, and the contact
// backfill only ever overwrites this exact value.
const UnknownCaller = "unknown"

// Metadata holds the fields inferred from a filename. Nil means the field
// could not be derived.
type Metadata struct {
	CallerName    *string
	ManualPhone   *string
	CallDirection *string
}

var (
	directionRe       = regexp.MustCompile(`(?i)(incoming|outgoing)`)
	phoneRe           = regexp.MustCompile(`\+?\d{10,}`)
	nameBeforePhoneRe = regexp.MustCompile(`^(.+?)\s*\(\+\d`)
	leadingNameRe     = regexp.MustCompile(`^([^_\d]+)`)
	phoneShapedRe     = regexp.MustCompile(`^[\d\s\-()]+$`)
)

// FromFilename derives caller metadata from an uploaded filename.
// An empty filename yields all-nil metadata.
func FromFilename(filename string) Metadata {
	var meta Metadata
	if filename == "" {
		return meta
	}

	if m := directionRe.FindString(filename); m != "" {
		direction := strings.ToUpper(m[:1]) + strings.ToLower(m[1:])
		meta.CallDirection = &direction
	}

	meta.ManualPhone = extractPhone(filename)
	meta.CallerName = extractName(filename, meta.ManualPhone != nil)

	return meta
}

// isDirectionKeyword reports whether the candidate is just the call
// direction marker, which recorder apps put where a name would go.
func isDirectionKeyword(candidate string) bool {
	lower := strings.ToLower(candidate)
	return lower == "incoming" || lower == "outgoing"
}

// extractPhone finds the first phone-number token and normalizes it to
// CC-XXX-XXX-XXXX. Numbers without a country prefix are assumed to be
// North American.
func extractPhone(filename string) *string {
	token := phoneRe.FindString(filename)
	if token == "" {
		return nil
	}

	if !strings.HasPrefix(token, "+") {
		token = "+1" + token
	}

	digits := token[1:]
	if len(digits) < 11 {
		return nil
	}

	// Group as country code, 3, 3, rest.
	formatted := digits[:1] + "-" + digits[1:4] + "-" + digits[4:7] + "-" + digits[7:]
	return &formatted
}

// extractName tries the name patterns in priority order. A candidate that is
// itself just a phone-number-shaped string is replaced by UnknownCaller.
func extractName(filename string, havePhone bool) *string {
	if m := nameBeforePhoneRe.FindStringSubmatch(filename); m != nil {
		name := sanitizeName(strings.Trim(m[1], " ()"))
		return &name
	}

	if m := leadingNameRe.FindStringSubmatch(filename); m != nil && len(m[1]) > 1 {
		candidate := strings.Trim(m[1], " _-")
		if !isDirectionKeyword(candidate) {
			name := sanitizeName(candidate)
			return &name
		}
	}

	if havePhone {
		name := UnknownCaller
		return &name
	}

	return nil
}

func sanitizeName(candidate string) string {
	if phoneShapedRe.MatchString(candidate) {
		return UnknownCaller
	}
	return candidate
}
