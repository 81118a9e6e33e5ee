// Package enrichment implements the cost-ordered enrichment waterfall used
// when a tiered or finder lookup needs more than SMTP alone can confirm
// (C14). Grounded on original_source/engine/enrichment.py
// (extract_name_from_email patterns, tier4 free-pattern rules, tier6
// three-way SMTP re-confirm outcome) and email_finder.py's Exa/Apollo call
// shapes.
package enrichment

import (
	"regexp"
	"strings"
)

// ExtractedName is the best guess at a person's name from an email's local
// part, with a confidence and the pattern label that produced it.
type ExtractedName struct {
	First      string
	Last       string
	Confidence float64
	Pattern    string
}

var (
	firstLastRE      = regexp.MustCompile(`^([a-z]{2,})\.([a-z]{2,})$`)
	firstMiddleLastRE = regexp.MustCompile(`^([a-z]{2,})\.([a-z])\.([a-z]{2,})$`)
	fDotLastRE       = regexp.MustCompile(`^([a-z])\.([a-z]{2,})$`)
	fLastRE          = regexp.MustCompile(`^([a-z])([a-z]{3,})$`)
)

// ExtractName guesses (first, last) from an email's local part, per
// original_source/engine/enrichment.py's extract_name_from_email.
func ExtractName(email string) ExtractedName {
	local, _, _ := strings.Cut(strings.ToLower(email), "@")

	if m := firstLastRE.FindStringSubmatch(local); m != nil {
		first, last := m[1], m[2]
		if len(first) >= 2 && len(first) <= 15 && len(last) >= 2 && len(last) <= 20 {
			return ExtractedName{capitalize(first), capitalize(last), 0.92, "first.last"}
		}
	}

	if m := firstMiddleLastRE.FindStringSubmatch(local); m != nil {
		return ExtractedName{capitalize(m[1]), capitalize(m[3]), 0.88, "first.m.last"}
	}

	for _, sep := range []string{"_", "-"} {
		if strings.Contains(local, sep) {
			parts := strings.Split(local, sep)
			if len(parts) == 2 && isAlphaInRange(parts[0], 2, 15) && isAlphaInRange(parts[1], 2, 15) {
				return ExtractedName{capitalize(parts[0]), capitalize(parts[1]), 0.86, "first" + sep + "last"}
			}
		}
	}

	if m := fDotLastRE.FindStringSubmatch(local); m != nil {
		return ExtractedName{strings.ToUpper(m[1]), capitalize(m[2]), 0.78, "f.last"}
	}

	if m := fLastRE.FindStringSubmatch(local); m != nil && len(local) <= 10 {
		return ExtractedName{strings.ToUpper(m[1]), capitalize(m[2]), 0.74, "flast"}
	}

	return ExtractedName{}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func isAlphaInRange(s string, min, max int) bool {
	if len(s) < min || len(s) > max {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// roleKeywords flags generic mailbox local parts that belong to a team, not
// a person.
var roleKeywords = []string{
	"info", "admin", "support", "sales", "contact", "help", "service",
	"team", "hello", "hi", "mail", "webmaster", "noreply", "no-reply",
}

// corporateDomains are large, well-known domains whose naming convention is
// reliably first-pattern rather than catch-all guesswork.
var corporateDomains = map[string]float64{
	"apple.com": 0.92, "microsoft.com": 0.92, "google.com": 0.92,
	"amazon.com": 0.92, "facebook.com": 0.92, "meta.com": 0.92,
}

// PatternStatus is the tier-4 free-pattern verdict.
type PatternStatus string

const (
	PatternValid  PatternStatus = "valid"
	PatternRisky  PatternStatus = "risky"
	PatternInvalid PatternStatus = "invalid"
)

// PatternResult is the tier-4 free-pattern outcome.
type PatternResult struct {
	Status     PatternStatus
	Confidence float64
	Reason     string
}

// FreePattern classifies an email using only its own shape — no network
// calls — per original_source/engine/enrichment.py's tier4_free_pattern.
func FreePattern(email string) PatternResult {
	local, domain, _ := strings.Cut(strings.ToLower(email), "@")

	for _, keyword := range roleKeywords {
		if strings.Contains(local, keyword) {
			return PatternResult{PatternRisky, 0.90, "role_account_" + keyword}
		}
	}

	name := ExtractName(email)

	if conf, ok := corporateDomains[domain]; ok && name.Confidence >= 0.70 {
		combined := (conf + name.Confidence) / 2
		return PatternResult{PatternValid, combined, "corporate_" + name.Pattern}
	}

	if name.Confidence >= 0.88 {
		return PatternResult{PatternValid, name.Confidence, "strong_pattern_" + name.Pattern}
	}

	if name.Confidence >= 0.70 && name.Confidence < 0.88 {
		return PatternResult{PatternRisky, name.Confidence, "medium_pattern_" + name.Pattern}
	}

	pattern := name.Pattern
	if pattern == "" {
		pattern = "no_pattern"
	}
	return PatternResult{PatternRisky, 0.55, "low_confidence_" + pattern}
}
