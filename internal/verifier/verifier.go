// Package verifier orchestrates the full pipeline — syntax, metadata, DNS,
// provider routing, SMTP, catch-all probing, scoring — for single and
// batched lookups (C7). Grounded on original_source/engine/verifier.py.
package verifier

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"mailnexy/internal/dnsinfo"
	"mailnexy/internal/metadata"
	"mailnexy/internal/model"
	"mailnexy/internal/provider"
	"mailnexy/internal/smtpclient"
	"mailnexy/internal/syntax"
)

// DefaultConcurrency bounds how many SMTP sessions a batch verification may
// run at once.
const DefaultConcurrency = 5

// Verifier runs the pipeline against a shared resolver, classifier, and
// SMTP client. A single instance should be constructed at startup and
// shared across requests.
type Verifier struct {
	Resolver   *dnsinfo.Resolver
	Classifier *metadata.Classifier
	SMTP       *smtpclient.Client
	Logger     *slog.Logger

	HeloDomain  string
	FromAddress string
}

// New constructs a Verifier. Pass nil for logger to use slog.Default().
func New(resolver *dnsinfo.Resolver, classifier *metadata.Classifier, client *smtpclient.Client, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		Resolver:    resolver,
		Classifier:  classifier,
		SMTP:        client,
		Logger:      logger,
		HeloDomain:  smtpclient.DefaultHeloDomain,
		FromAddress: smtpclient.DefaultFromAddress,
	}
}

// catchAllCache memoizes one domain's catch-all probe result for the
// lifetime of a single batch call.
type catchAllCache struct {
	mu    sync.Mutex
	cache map[string]model.Tri
}

func newCatchAllCache() *catchAllCache {
	return &catchAllCache{cache: make(map[string]model.Tri)}
}

func (c *catchAllCache) get(domain string) (model.Tri, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.cache[domain]
	return v, ok
}

func (c *catchAllCache) set(domain string, v model.Tri) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[domain] = v
}

// VerifyOne runs the full pipeline for a single address. cache may be
// nil; when non-nil it is consulted and updated so repeated calls for the
// same domain (e.g. within a batch) reuse one probe.
func (v *Verifier) VerifyOne(ctx context.Context, email string, cache *catchAllCache) model.VerificationResult {
	syn := syntax.Validate(email)
	if !syn.IsValid {
		return model.VerificationResult{
			Email:        email,
			Normalized:   strings.ToLower(strings.TrimSpace(email)),
			Reachability: model.Invalid,
			Error:        "syntax: " + syn.Reason,
		}
	}

	domain := syn.Domain
	meta := v.Classifier.Classify(syn.LocalPart, domain)

	dnsInfo, err := v.Resolver.Lookup(ctx, domain)
	if err != nil || !dnsInfo.HasMX {
		return model.VerificationResult{
			Email:        email,
			Normalized:   syn.Normalized,
			Reachability: model.Invalid,
			IsDisposable: meta.IsDisposable,
			IsRole:       meta.IsRole,
			IsFree:       meta.IsFree,
			Provider:     dnsInfo.Provider,
			Domain:       domain,
			Error:        "no MX or A records found",
		}
	}

	mxHost := dnsInfo.MXHosts[0]
	policy := provider.Get(dnsInfo.Provider)

	var smtpResult *model.SmtpResponse
	var isCatchAll model.Tri

	if policy.DoSMTP {
		result := v.SMTP.Check(ctx, syn.Normalized, mxHost)
		smtpResult = &result

		if policy.DoCatchAll && result.Code >= 200 {
			if cache != nil {
				if cached, ok := cache.get(domain); ok {
					isCatchAll = cached
				} else {
					isCatchAll = v.SMTP.CheckCatchAll(ctx, domain, mxHost)
					cache.set(domain, isCatchAll)
				}
			} else {
				isCatchAll = v.SMTP.CheckCatchAll(ctx, domain, mxHost)
			}
		}
	}

	reachability, deliverable := score(smtpResult, isCatchAll, meta.IsDisposable, meta.IsRole, policy.AutoMarkRisky)

	result := model.VerificationResult{
		Email:         email,
		Normalized:    syn.Normalized,
		Reachability:  reachability,
		IsDeliverable: deliverable,
		IsCatchAll:    isCatchAll,
		IsDisposable:  meta.IsDisposable,
		IsRole:        meta.IsRole,
		IsFree:        meta.IsFree,
		MXHost:        mxHost,
		Provider:      dnsInfo.Provider,
		Domain:        domain,
	}
	if smtpResult != nil {
		result.SMTPCode = smtpResult.Code
		result.SMTPMessage = smtpResult.Message
	}
	return result
}

// score computes reachability and deliverability per spec.md §4.9's
// precedence table. Known-risky providers (Hotmail B2C) short-circuit
// before any SMTP result is consulted; unlike the original Python, this
// never returns Safe for a provider already marked auto-risky.
func score(smtp *model.SmtpResponse, isCatchAll model.Tri, isDisposable, isRole, providerMarkRisky bool) (model.Reachability, model.Tri) {
	if providerMarkRisky {
		return model.Risky, nil
	}
	if smtp == nil {
		return model.Unknown, nil
	}
	if smtp.IsBlacklisted {
		return model.Unknown, nil
	}
	if smtp.Code == 0 {
		return model.Unknown, nil
	}
	if smtp.IsInvalid {
		return model.Invalid, model.TriFalse()
	}
	if smtp.IsDisabled {
		return model.Invalid, model.TriFalse()
	}
	if smtp.IsGreylisted {
		return model.Risky, nil
	}
	if smtp.IsFullInbox {
		return model.Risky, model.TriTrue()
	}

	if smtp.Code >= 200 && smtp.Code < 300 {
		if isCatchAll != nil && *isCatchAll {
			return model.Risky, nil
		}
		if isDisposable {
			return model.Risky, model.TriTrue()
		}
		if isRole {
			return model.Risky, model.TriTrue()
		}
		return model.Safe, model.TriTrue()
	}

	if smtp.Code >= 500 && smtp.Code < 600 {
		return model.Invalid, model.TriFalse()
	}
	if smtp.Code >= 400 && smtp.Code < 500 {
		return model.Risky, nil
	}

	return model.Unknown, nil
}

// VerifyBatch verifies many addresses, grouping by domain so each domain's
// DNS lookup and catch-all probe run once, with a bounded outer concurrency
// and a per-domain lock preventing simultaneous connections to one MX.
// Results are returned in the same order as emails.
func (v *Verifier) VerifyBatch(ctx context.Context, emails []string, concurrency int) []model.VerificationResult {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	type indexed struct {
		idx   int
		email string
	}
	ordered := make([]indexed, len(emails))
	for i, e := range emails {
		ordered[i] = indexed{idx: i, email: e}
	}
	sort.Slice(ordered, func(i, j int) bool {
		return domainOf(ordered[i].email) < domainOf(ordered[j].email)
	})

	results := make([]model.VerificationResult, len(emails))
	cache := newCatchAllCache()
	sem := make(chan struct{}, concurrency)

	var domainLocksMu sync.Mutex
	domainLocks := make(map[string]*sync.Mutex)
	lockFor := func(domain string) *sync.Mutex {
		domainLocksMu.Lock()
		defer domainLocksMu.Unlock()
		l, ok := domainLocks[domain]
		if !ok {
			l = &sync.Mutex{}
			domainLocks[domain] = l
		}
		return l
	}

	var wg sync.WaitGroup
	for _, item := range ordered {
		wg.Add(1)
		go func(item indexed) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			domain := domainOf(item.email)
			lock := lockFor(domain)
			lock.Lock()
			defer lock.Unlock()

			results[item.idx] = v.safeVerifyOne(ctx, item.email, cache)
		}(item)
	}
	wg.Wait()

	return results
}

// safeVerifyOne traps panics from a single verification so one bad address
// cannot abort an entire batch.
func (v *Verifier) safeVerifyOne(ctx context.Context, email string, cache *catchAllCache) (result model.VerificationResult) {
	defer func() {
		if r := recover(); r != nil {
			v.Logger.Error("verification panicked", "email", email, "panic", r)
			result = model.VerificationResult{
				Email:        email,
				Normalized:   strings.ToLower(strings.TrimSpace(email)),
				Reachability: model.Unknown,
				Domain:       domainOf(email),
				Error:        "internal verification error",
			}
		}
	}()
	return v.VerifyOne(ctx, email, cache)
}

func domainOf(email string) string {
	_, domain, found := strings.Cut(strings.ToLower(strings.TrimSpace(email)), "@")
	if !found {
		return ""
	}
	return domain
}
