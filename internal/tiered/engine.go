// Package tiered implements the tiered verification state machine (C9):
// a cached result answers instantly, a syntax/DNS/metadata-only pass
// answers fast when confident, otherwise a full SMTP check runs, and an
// enrichment waterfall fills in whatever SMTP left unknown. Grounded on
// original_source/engine/tiered_verifier.py (verify_email_tiered,
// _tier2_fast/_compute_fast_tier_confidence/_infer_reachability,
// _tier3_background) and enrichment.py's tier6_smtp_reverify (already
// implemented as internal/enrichment.Chain.EnrichUnknown). The background
// worker pool follows the teacher's worker/warmup_worker.go and
// worker/unibox_worker.go ticker-and-goroutine idiom, generalized to a
// bounded job queue drained by a fixed pool of goroutines instead of a
// periodic table scan.
package tiered

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"mailnexy/internal/dnsinfo"
	"mailnexy/internal/enrichment"
	"mailnexy/internal/metadata"
	"mailnexy/internal/model"
	"mailnexy/internal/store"
	"mailnexy/internal/syntax"
	"mailnexy/internal/verifier"
)

const (
	// CacheTTL is how long a stored result answers Tier 1 before it is
	// treated as stale and re-verified.
	CacheTTL = 30 * 24 * time.Hour
	// FastTierConfidence is the minimum Tier 2 confidence required to
	// answer without running SMTP.
	FastTierConfidence = 0.85
	// DefaultQueueCapacity bounds the Tier 3 background backfill queue.
	DefaultQueueCapacity = 500
	// DefaultWorkers is the default background worker pool size.
	DefaultWorkers = 8
)

// Outcome is one verification's tier, the human-readable reason the engine
// stopped at that tier, and the resulting VerificationResult.
type Outcome struct {
	Result model.VerificationResult
	Tier   int
	Reason string
}

// backfillJob is a queued Tier 3 SMTP re-verification of an address the
// fast tier already answered.
type backfillJob struct {
	email string
}

// Engine runs the tiered pipeline against shared singletons, optionally
// backed by a persistent Store (for Tier 1) and an enrichment Chain (for
// Tiers 4-5), with a bounded background worker pool for Tier 3 backfill.
type Engine struct {
	Resolver   *dnsinfo.Resolver
	Classifier *metadata.Classifier
	Verifier   *verifier.Verifier
	Store      store.Store        // nil disables Tier 1 cache lookups/backfill writes
	Enrichment *enrichment.Chain  // nil disables Tiers 4-5
	Logger     *slog.Logger

	CacheTTL           time.Duration
	FastTierConfidence float64
	// RoleAccountFilterInvalid mirrors the ROLE_ACCOUNT_FILTER setting: when
	// true (the default), a role-account address is forced Invalid once
	// SMTP has run; when false, its SMTP-derived reachability stands.
	RoleAccountFilterInvalid bool

	queue   chan backfillJob
	workers int
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// New constructs an Engine and starts its background worker pool. Call
// Stop to drain and shut the pool down. queueCapacity/workers default to
// DefaultQueueCapacity/DefaultWorkers when <= 0.
func New(resolver *dnsinfo.Resolver, classifier *metadata.Classifier, v *verifier.Verifier, st store.Store, chain *enrichment.Chain, logger *slog.Logger, queueCapacity, workers int) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if queueCapacity <= 0 {
		queueCapacity = DefaultQueueCapacity
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		Resolver:           resolver,
		Classifier:         classifier,
		Verifier:           v,
		Store:              st,
		Enrichment:         chain,
		Logger:             logger,
		CacheTTL:                 CacheTTL,
		FastTierConfidence:       FastTierConfidence,
		RoleAccountFilterInvalid: true,
		queue:                    make(chan backfillJob, queueCapacity),
		workers:            workers,
		cancel:             cancel,
	}
	e.startWorkers(ctx)
	return e
}

func (e *Engine) startWorkers(ctx context.Context) {
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-e.queue:
					e.runBackfill(job.email)
				}
			}
		}()
	}
}

// Stop cancels the background worker pool and waits for in-flight jobs to
// finish.
func (e *Engine) Stop() {
	e.cancel()
	e.wg.Wait()
}

// Verify runs the full tiered pipeline for one address. forceTier mirrors
// the original's force_tier: 2 skips the cache lookup and accepts whatever
// Tier 2 produces even below the confidence floor; 3 skips both Tier 1 and
// Tier 2 and goes straight to a full SMTP check. 0 means no forcing.
func (e *Engine) Verify(ctx context.Context, email string, forceTier int) Outcome {
	email = strings.ToLower(strings.TrimSpace(email))

	if forceTier != 2 && forceTier != 3 && e.Store != nil {
		if cached, ok := e.tier1Cached(ctx, email); ok {
			return Outcome{Result: cached, Tier: 1, Reason: "cached_result"}
		}
	}

	if forceTier != 3 {
		if result, confidence, ok := e.tier2Fast(ctx, email); ok {
			if confidence >= e.FastTierConfidence || forceTier == 2 {
				e.enqueueBackfill(email)
				return Outcome{Result: result, Tier: 2, Reason: fastTierReason(confidence)}
			}
		}
	}

	result := e.Verifier.VerifyOne(ctx, email, nil)

	if result.IsRole && e.RoleAccountFilterInvalid {
		result.Reachability = model.Invalid
		result.IsDeliverable = model.TriFalse()
		result.Error = "role account filtered"
		e.persist(ctx, result)
		return Outcome{Result: result, Tier: 3, Reason: "role_account_filtered"}
	}

	isCatchAll := result.IsCatchAll != nil && *result.IsCatchAll
	needsEnrichment := e.Enrichment != nil && (result.Reachability == model.Unknown || isCatchAll)

	if needsEnrichment {
		outcome := e.Enrichment.EnrichUnknown(ctx, email, result.MXHost, isCatchAll)
		switch outcome.Status {
		case enrichment.StatusValid:
			result.Reachability = model.Safe
			result.IsDeliverable = model.TriTrue()
		case enrichment.StatusRisky:
			result.Reachability = model.Risky
			result.IsDeliverable = model.TriFalse()
		case enrichment.StatusInvalid:
			result.Reachability = model.Invalid
			result.IsDeliverable = model.TriFalse()
		}
		result.Error = outcome.Reason

		e.Logger.Info("enriched unknown result", "email", email, "status", outcome.Status, "reason", outcome.Reason, "cost_usd", outcome.CostUSD)
		e.persist(ctx, result)

		tierNum := 5
		if strings.Contains(outcome.Reason, "tier4") {
			tierNum = 4
		}
		return Outcome{Result: result, Tier: tierNum, Reason: outcome.Reason}
	}

	e.persist(ctx, result)
	return Outcome{Result: result, Tier: 3, Reason: "full_smtp_verification"}
}

// tier1Cached looks up the address's normalized form and returns the stored
// result if present and fresher than CacheTTL, with VerifiedAt in UTC.
func (e *Engine) tier1Cached(ctx context.Context, email string) (model.VerificationResult, bool) {
	key := email
	if syn := syntax.Validate(email); syn.IsValid {
		key = syn.Normalized
	}
	cached, ok, err := e.Store.Lookup(ctx, key)
	if err != nil {
		e.Logger.Error("tier1 cache lookup failed", "email", email, "error", err)
		return model.VerificationResult{}, false
	}
	if !ok {
		return model.VerificationResult{}, false
	}
	cached.VerifiedAt = cached.VerifiedAt.UTC()
	if time.Since(cached.VerifiedAt) > e.CacheTTL {
		return model.VerificationResult{}, false
	}
	return cached, true
}

// tier2Fast scores an address from syntax, metadata, and DNS alone, with
// no SMTP round trip. Deliberate divergence from the original: its
// _infer_reachability maps known-good providers (Gmail, Workspace,
// Microsoft365, any free provider) straight to Safe; this port never
// returns Safe without an SMTP confirmation, so a confident Tier 2 result
// is Risky (disposable/role) or Unknown — matching spec's Safe-requires-
// SMTP invariant rather than the original's looser shortcut.
func (e *Engine) tier2Fast(ctx context.Context, email string) (model.VerificationResult, float64, bool) {
	syn := syntax.Validate(email)
	if !syn.IsValid {
		return model.VerificationResult{
			Email:        email,
			Normalized:   email,
			Reachability: model.Invalid,
			Error:        "syntax: " + syn.Reason,
		}, 1.0, true
	}

	meta := e.Classifier.Classify(syn.LocalPart, syn.Domain)
	dnsInfo, err := e.Resolver.Lookup(ctx, syn.Domain)
	if err != nil || !dnsInfo.HasMX {
		return model.VerificationResult{
			Email:        email,
			Normalized:   syn.Normalized,
			Reachability: model.Invalid,
			IsDisposable: meta.IsDisposable,
			IsRole:       meta.IsRole,
			IsFree:       meta.IsFree,
			Provider:     dnsInfo.Provider,
			Domain:       syn.Domain,
			Error:        "no MX or A records found",
		}, 1.0, true
	}

	confidence := computeFastTierConfidence(meta, dnsInfo.Provider)

	reachability := inferReachability(meta)
	var deliverable model.Tri
	if reachability == model.Safe {
		deliverable = model.TriTrue()
	}

	result := model.VerificationResult{
		Email:         email,
		Normalized:    syn.Normalized,
		Reachability:  reachability,
		IsDeliverable: deliverable,
		IsDisposable:  meta.IsDisposable,
		IsRole:        meta.IsRole,
		IsFree:        meta.IsFree,
		MXHost:        dnsInfo.MXHosts[0],
		Provider:      dnsInfo.Provider,
		Domain:        syn.Domain,
		Error:         "fast_tier_probabilistic",
	}
	return result, confidence, true
}

// computeFastTierConfidence mirrors _compute_fast_tier_confidence's fixed
// weights exactly.
func computeFastTierConfidence(meta metadata.Classification, p model.Provider) float64 {
	confidence := 0.5

	switch p {
	case model.ProviderGmail, model.ProviderGoogleWorkspace:
		confidence += 0.3
	case model.ProviderMicrosoft365:
		confidence += 0.2
	case model.ProviderGeneric:
		confidence -= 0.1
	}
	if meta.IsFree {
		confidence += 0.1
	}
	if !meta.IsDisposable && !meta.IsRole {
		confidence += 0.1
	}
	if meta.IsDisposable {
		confidence -= 0.2
	}

	return clamp(confidence)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// inferReachability answers the Tier 2 verdict without an SMTP check. Per
// the package doc, it never returns Safe — only a real SMTP accept earns
// that.
func inferReachability(meta metadata.Classification) model.Reachability {
	if meta.IsDisposable || meta.IsRole {
		return model.Risky
	}
	return model.Unknown
}

func fastTierReason(confidence float64) string {
	return "fast_validation_confidence_" + strconv.FormatFloat(confidence, 'f', 2, 64)
}

// enqueueBackfill schedules a Tier 3 SMTP re-verification of an address
// the fast tier already answered, dropping the job (and logging) if the
// queue is full rather than blocking the caller.
func (e *Engine) enqueueBackfill(email string) {
	if e.Store == nil {
		return
	}
	select {
	case e.queue <- backfillJob{email: email}:
	default:
		e.Logger.Warn("tier3 backfill queue full, dropping job", "email", email)
	}
}

func (e *Engine) runBackfill(email string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	e.Logger.Info("background SMTP verification starting", "email", email)
	result := e.Verifier.VerifyOne(ctx, email, nil)
	e.persist(ctx, result)
	e.Logger.Info("background SMTP verification complete", "email", email, "reachability", result.Reachability)
}

func (e *Engine) persist(ctx context.Context, result model.VerificationResult) {
	if e.Store == nil {
		return
	}
	if result.VerifiedAt.IsZero() {
		result.VerifiedAt = time.Now()
	}
	if err := e.Store.Upsert(ctx, result); err != nil {
		e.Logger.Error("persisting verification result failed", "email", result.Email, "error", err)
	}
}
