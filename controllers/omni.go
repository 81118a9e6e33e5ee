package controller

import (
	"github.com/gofiber/fiber/v2"

	"mailnexy/internal/model"
	"mailnexy/internal/tiered"
)

// omniResult maps an internal VerificationResult onto the historical
// "omni" response shape described in spec.md §6, so existing integrations
// built against the teacher's earlier verifier keep working unchanged.
func omniResult(r model.VerificationResult) fiber.Map {
	isCatchAll := r.IsCatchAll != nil && *r.IsCatchAll

	var result, status string
	switch {
	case r.Reachability == model.Safe:
		result, status = "deliverable", "valid"
	case r.Reachability == model.Invalid:
		result, status = "undeliverable", "invalid"
	case r.Reachability == model.Risky && isCatchAll:
		result, status = "accept_all", "catch_all"
	case r.Reachability == model.Risky:
		result, status = "risky", "risky"
	default:
		result, status = "unknown", "unknown"
	}

	isDeliverable := r.IsDeliverable != nil && *r.IsDeliverable

	return fiber.Map{
		"email":  r.Email,
		"result": result,
		"status": status,

		"is_disposable": r.IsDisposable,
		"is_role":       r.IsRole,
		"is_free":       r.IsFree,
		"is_valid":      r.Reachability != model.Invalid,
		"is_catchall":   isCatchAll,
		"is_catch_all":  isCatchAll,
		"mx_found":      r.MXHost != "",
		"smtp_check":    r.SMTPCode != 0,
		"is_deliverable": isDeliverable,

		"provider":    r.Provider,
		"mx_host":     r.MXHost,
		"smtp_code":   r.SMTPCode,
		"smtp_message": r.SMTPMessage,
		"domain":      r.Domain,
		"verified_at": r.VerifiedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		"error":       r.Error,

		// historical-client aliases
		"reachable": isDeliverable,
		"valid":     r.Reachability != model.Invalid,
	}
}

// omniOutcome adds the tiered-engine's tier/reason fields to an omni result.
func omniOutcome(o tiered.Outcome) fiber.Map {
	m := omniResult(o.Result)
	m["_kadenverify_tier"] = o.Tier
	m["_kadenverify_reason"] = o.Reason
	return m
}
