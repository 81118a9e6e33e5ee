// Package syntax implements RFC-5322-subset email syntax validation and
// free-provider normalization (C1). Grounded on the reachability project's
// original engine/syntax.py: the same length caps, character classes, and
// gmail dot/plus-stripping rules, ported to Go.
package syntax

import (
	"regexp"
	"strings"

	"mailnexy/internal/model"
)

// gmailAliases maps recognized aliases of the canonical free provider onto
// its canonical domain.
var gmailAliases = map[string]string{
	"googlemail.com": "gmail.com",
}

var (
	localPartRE = regexp.MustCompile(
		`^[a-zA-Z0-9!#$%&'*+\-/=?^_` + "`" + `{|}~]` +
			`(?:[a-zA-Z0-9!#$%&'*+\-/=?^_` + "`" + `{|}~.]*[a-zA-Z0-9!#$%&'*+\-/=?^_` + "`" + `{|}~])?$`)
	domainLabelRE = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?$`)
)

// Result is the outcome of Validate.
type Result struct {
	IsValid    bool
	Reason     string
	LocalPart  string
	Domain     string
	Normalized string
}

// Validate checks email syntax and normalizes the address. The returned
// Reason, when IsValid is false, carries no prefix; callers surface it to
// users as "syntax: <reason>".
func Validate(email string) Result {
	email = strings.TrimSpace(email)

	if email == "" {
		return invalid("empty email")
	}
	if len(email) > 254 {
		return invalid("total length exceeds 254")
	}
	if strings.Count(email, "@") != 1 {
		return invalid("must contain exactly one @")
	}

	at := strings.LastIndex(email, "@")
	localPart := strings.TrimSpace(email[:at])
	domain := strings.ToLower(strings.TrimSpace(email[at+1:]))

	if canon, ok := gmailAliases[domain]; ok {
		domain = canon
	}

	var normalizedLocal string
	if domain == "gmail.com" {
		clean := strings.ReplaceAll(localPart, ".", "")
		if idx := strings.Index(clean, "+"); idx >= 0 {
			clean = clean[:idx]
		}
		normalizedLocal = strings.ToLower(clean)
	} else {
		normalizedLocal = strings.ToLower(localPart)
	}
	normalized := normalizedLocal + "@" + domain

	if localPart == "" {
		return invalid("empty local part")
	}
	if len(localPart) > 64 {
		return invalid("local part exceeds 64 characters")
	}
	if domain == "" {
		return invalid("empty domain")
	}
	if len(domain) > 255 {
		return invalid("domain exceeds 255 characters")
	}
	if strings.Contains(localPart, "..") {
		return invalid("consecutive dots in local part")
	}
	if strings.HasPrefix(localPart, ".") || strings.HasSuffix(localPart, ".") {
		return invalid("leading or trailing dot in local part")
	}
	if strings.HasPrefix(localPart, `"`) || strings.HasSuffix(localPart, `"`) {
		return invalid("quoted strings not supported")
	}
	if !localPartRE.MatchString(localPart) {
		return invalid("invalid characters in local part")
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return invalid("domain must have at least one dot")
	}
	tld := labels[len(labels)-1]
	if len(tld) < 2 {
		return invalid("TLD too short")
	}
	if !isAlpha(tld) {
		return invalid("TLD must be alphabetic")
	}
	for _, label := range labels {
		if label == "" {
			return invalid("empty domain label")
		}
		if len(label) > 63 {
			return invalid("domain label exceeds 63 characters")
		}
		if !domainLabelRE.MatchString(label) {
			return invalid("invalid domain label: " + label)
		}
	}

	return Result{
		IsValid:    true,
		LocalPart:  localPart,
		Domain:     domain,
		Normalized: normalized,
	}
}

// ToEmailAddress converts a valid Result into a model.EmailAddress.
func (r Result) ToEmailAddress(raw string) model.EmailAddress {
	return model.EmailAddress{
		Raw:        raw,
		LocalPart:  r.LocalPart,
		Domain:     r.Domain,
		Normalized: r.Normalized,
	}
}

func invalid(reason string) Result {
	return Result{IsValid: false, Reason: reason}
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
