// Package catchall scores the likelihood that an address on a catch-all
// domain is a real, reachable mailbox rather than an arbitrary accepted
// string (C8). Grounded on original_source/engine/catchall_validator.py —
// exact weights and pattern tables are ported unchanged.
package catchall

import (
	"fmt"
	"regexp"
	"strings"
)

// patternWeight pairs a compiled local-part regex with its confidence.
type patternWeight struct {
	re     *regexp.Regexp
	weight float64
}

// corporatePatterns are tried in order, most common corporate naming
// convention first; the first match sets the pattern confidence.
var corporatePatterns = []patternWeight{
	{regexp.MustCompile(`^[a-z]+\.[a-z]+@`), 0.90},
	{regexp.MustCompile(`^[a-z]+[a-z]+@`), 0.85},
	{regexp.MustCompile(`^[a-z]\.[a-z]+@`), 0.80},
	{regexp.MustCompile(`^[a-z]+@`), 0.75},
	{regexp.MustCompile(`^[a-z]+_[a-z]+@`), 0.70},
	{regexp.MustCompile(`^[a-z]+-[a-z]+@`), 0.70},
	{regexp.MustCompile(`^[a-z]+\.[a-z]\.[a-z]+@`), 0.65},
	{regexp.MustCompile(`^[a-z]+[0-9]+@`), 0.50},
	{regexp.MustCompile(`^[a-z][a-z]+@`), 0.60},
}

// redFlagPatterns match against the bare local part (no trailing "@").
var redFlagPatterns = []patternWeight{
	{regexp.MustCompile(`^test`), 0.05},
	{regexp.MustCompile(`^admin`), 0.10},
	{regexp.MustCompile(`^noreply`), 0.05},
	{regexp.MustCompile(`^[0-9]+$`), 0.10},
	{regexp.MustCompile(`^[a-z]{15,}$`), 0.20},
	{regexp.MustCompile(`^\w{3,}[0-9]{5,}$`), 0.15},
}

type companyTypeSignal struct {
	suffix              string
	confidenceAdjustment float64
}

var companyTypeSignals = []companyTypeSignal{
	{".edu", 0.15},
	{".gov", -0.10},
	{".mil", -0.10},
	{".org", 0.05},
}

// PersonMatch is a third-party directory hit (Apollo, a local contact store,
// LinkedIn) supplied by the enrichment chain; nil means no match was sought
// or found.
type PersonMatch struct {
	Confidence float64
	Source     string
}

// Input bundles everything Evaluate can use to improve on the 0.5 base
// confidence assigned to every catch-all-accepted address.
type Input struct {
	Email         string
	FirstName     string
	LastName      string
	CompanySize   int // 0 = unknown
	DirectoryHit  *PersonMatch // Apollo/local-store match
	LinkedInHit   *PersonMatch
}

// Score is the outcome of scoring one catch-all address.
type Score struct {
	Email        string
	Confidence   float64
	IsLikelyReal bool
	Reasons      []string
}

// LikelyRealThreshold is the confidence at which a catch-all address is
// considered as good as a confirmed mailbox.
const LikelyRealThreshold = 0.70

// Evaluate scores a catch-all-accepted email using name/pattern/directory
// signals, per original_source/engine/catchall_validator.py's
// score_catchall_email.
func Evaluate(in Input) Score {
	emailLower := strings.ToLower(strings.TrimSpace(in.Email))
	localPart, domain, _ := strings.Cut(emailLower, "@")

	confidence := 0.50
	var reasons []string

	if in.DirectoryHit != nil {
		confidence += 0.40
		reasons = append(reasons, fmt.Sprintf("directory_match_confidence_%.2f", in.DirectoryHit.Confidence))
	}

	if in.LinkedInHit != nil {
		confidence += 0.35
		reasons = append(reasons, "linkedin_profile_match")
	}

	if in.FirstName != "" && in.LastName != "" {
		nameConfidence := checkNamePattern(localPart, in.FirstName, in.LastName)
		if nameConfidence > 0 {
			confidence += nameConfidence * 0.30
			reasons = append(reasons, fmt.Sprintf("name_pattern_match_%.2f", nameConfidence))
		} else {
			confidence -= 0.20
			reasons = append(reasons, "name_pattern_mismatch")
		}
	}

	patternConfidence := checkEmailPattern(localPart)
	confidence += (patternConfidence - 0.50) * 0.20
	reasons = append(reasons, fmt.Sprintf("pattern_confidence_%.2f", patternConfidence))

	if in.CompanySize > 0 {
		switch {
		case in.CompanySize > 1000:
			confidence += 0.15
			reasons = append(reasons, fmt.Sprintf("large_company_%d_employees", in.CompanySize))
		case in.CompanySize < 10:
			confidence -= 0.05
			reasons = append(reasons, fmt.Sprintf("small_company_%d_employees", in.CompanySize))
		}
	}

	for _, signal := range companyTypeSignals {
		if strings.HasSuffix(domain, signal.suffix) {
			confidence += signal.confidenceAdjustment
			reasons = append(reasons, "domain_type_"+signal.suffix)
		}
	}

	for _, rf := range redFlagPatterns {
		if rf.re.MatchString(localPart) {
			confidence = min(confidence, rf.weight)
			reasons = append(reasons, "red_flag_"+rf.re.String())
			break
		}
	}

	confidence = clamp(confidence, 0.0, 1.0)

	return Score{
		Email:        in.Email,
		Confidence:   confidence,
		IsLikelyReal: confidence >= LikelyRealThreshold,
		Reasons:      reasons,
	}
}

// checkNamePattern scores how well localPart matches the person's name,
// from exact first.last forms down to a loose substring match.
func checkNamePattern(localPart, firstName, lastName string) float64 {
	first := strings.ToLower(strings.TrimSpace(firstName))
	last := strings.ToLower(strings.TrimSpace(lastName))
	local := strings.ToLower(strings.TrimSpace(localPart))

	switch local {
	case first + "." + last:
		return 0.95
	case first + last:
		return 0.90
	case string(first[0]) + "." + last:
		return 0.85
	case first:
		return 0.80
	case first + "_" + last:
		return 0.85
	case first + "-" + last:
		return 0.85
	}

	switch {
	case strings.Contains(local, first) && strings.Contains(local, last):
		return 0.70
	case strings.Contains(local, last):
		return 0.60
	case strings.Contains(local, first):
		return 0.50
	}

	return 0.0
}

// checkEmailPattern estimates corporate-vs-random likelihood from the
// local-part shape alone, independent of any known name.
func checkEmailPattern(localPart string) float64 {
	local := strings.ToLower(strings.TrimSpace(localPart))

	for _, p := range corporatePatterns {
		if p.re.MatchString(local + "@") {
			return p.weight
		}
	}

	for _, p := range redFlagPatterns {
		if p.re.MatchString(local) {
			return p.weight
		}
	}

	return 0.50
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
