package enrichment

import (
	"context"
	"strconv"
	"strings"

	"mailnexy/internal/catchall"
	"mailnexy/internal/smtpclient"
)

// Status is the terminal enrichment verdict.
type Status string

const (
	StatusValid   Status = "valid"
	StatusRisky   Status = "risky"
	StatusInvalid Status = "invalid"
)

// Outcome is the result of running the full enrichment waterfall for one
// address: a verdict, a confidence, a human-readable reason trail, and the
// accumulated USD cost of any paid adapters that were invoked.
type Outcome struct {
	Status     Status
	Confidence float64
	Reason     string
	CostUSD    float64
}

// Chain runs the cost-ordered enrichment waterfall: free catch-all scoring
// and pattern analysis first, then increasingly expensive paid adapters,
// then an SMTP re-confirmation of whatever enrichment found. Grounded on
// original_source/engine/enrichment.py's enrich_unknown.
type Chain struct {
	Adapters []Adapter // ordered cheapest-first; Find stops at the first Match.Found
	SMTP     *smtpclient.Client
}

// NewChain builds a Chain from zero or more adapters, in the order they
// should be tried.
func NewChain(smtp *smtpclient.Client, adapters ...Adapter) *Chain {
	return &Chain{Adapters: adapters, SMTP: smtp}
}

// EnrichUnknown runs the waterfall for one address whose SMTP/catch-all
// signal alone was not conclusive.
func (c *Chain) EnrichUnknown(ctx context.Context, email, mxHost string, isCatchAll bool) Outcome {
	var totalCost float64

	if isCatchAll {
		if out, ok := c.tier4CatchAllAdvanced(email); ok {
			return out
		}
	}

	pattern := FreePattern(email)
	if pattern.Status == PatternValid && pattern.Confidence >= 0.88 {
		return Outcome{Status: StatusValid, Confidence: pattern.Confidence, Reason: "tier4_" + pattern.Reason}
	}
	if pattern.Status == PatternRisky && containsRoleAccount(pattern.Reason) {
		return Outcome{Status: StatusRisky, Confidence: pattern.Confidence, Reason: "tier4_" + pattern.Reason}
	}

	var found bool
	var match Match
	for _, adapter := range c.Adapters {
		totalCost += adapter.CostUSD()
		result, err := adapter.Find(ctx, email)
		if err == nil && result.Found {
			found = true
			match = result
			break
		}
	}

	if found {
		isValid, smtpCode, reason := c.tier6SMTPReverify(ctx, email, mxHost)
		switch isValid {
		case triTrueConst:
			return Outcome{Status: StatusValid, Confidence: 0.95, Reason: "tier6_" + match.Source + "_" + reason, CostUSD: totalCost}
		case triFalseConst:
			return Outcome{Status: StatusInvalid, Confidence: 0.90, Reason: "tier6_" + match.Source + "_" + reason + "_" + strconv.Itoa(smtpCode), CostUSD: totalCost}
		default:
			return Outcome{Status: StatusValid, Confidence: match.Confidence * 0.9, Reason: "tier6_" + match.Source + "_" + reason, CostUSD: totalCost}
		}
	}

	return Outcome{Status: StatusRisky, Confidence: pattern.Confidence, Reason: "tier4_" + pattern.Reason, CostUSD: totalCost}
}

// tier4CatchAllAdvanced scores a catch-all-accepted address with the
// catchall package's full weighting, returning early only when the
// resulting confidence is decisive (>= 0.75), per the original's
// tier4_catchall_advanced + enrich_unknown gating.
func (c *Chain) tier4CatchAllAdvanced(email string) (Outcome, bool) {
	name := ExtractName(email)
	score := catchall.Evaluate(catchall.Input{Email: email, FirstName: name.First, LastName: name.Last})

	if score.Confidence < 0.75 {
		return Outcome{}, false
	}

	reasonSuffix := joinTop(score.Reasons, 2)
	switch {
	case score.IsLikelyReal && score.Confidence >= 0.80:
		return Outcome{Status: StatusValid, Confidence: score.Confidence, Reason: "tier4a_catchall_validated_" + reasonSuffix}, true
	case score.Confidence >= 0.50:
		return Outcome{Status: StatusRisky, Confidence: score.Confidence, Reason: "tier4a_catchall_medium_" + reasonSuffix}, true
	default:
		return Outcome{Status: StatusInvalid, Confidence: score.Confidence, Reason: "tier4a_catchall_low_" + reasonSuffix}, true
	}
}

// tri mirrors Python's Optional[bool] three-way SMTP re-confirm outcome
// without importing model.Tri, since enrichment deliberately stays
// decoupled from the persisted VerificationResult shape.
type tri int

const (
	triUnknownConst tri = iota
	triTrueConst
	triFalseConst
)

// tier6SMTPReverify re-verifies an enrichment-found address over SMTP,
// per original_source/engine/enrichment.py's tier6_smtp_reverify.
func (c *Chain) tier6SMTPReverify(ctx context.Context, email, mxHost string) (tri, int, string) {
	if c.SMTP == nil || mxHost == "" {
		return triUnknownConst, 0, "smtp_error"
	}
	result := c.SMTP.Check(ctx, email, mxHost)
	switch {
	case result.Code == 250:
		return triTrueConst, 250, "smtp_confirmed"
	case result.Code >= 500:
		return triFalseConst, result.Code, "smtp_rejected"
	default:
		return triUnknownConst, result.Code, "smtp_inconclusive"
	}
}

func containsRoleAccount(reason string) bool {
	return strings.Contains(reason, "role_account")
}

func joinTop(items []string, n int) string {
	if len(items) > n {
		items = items[:n]
	}
	return strings.Join(items, "_")
}
