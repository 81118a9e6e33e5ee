// Package finder implements the email-finder waterfall: given a person's
// name and a domain, guess their email address (C10). Grounded on
// original_source/engine/email_finder.py (PATTERNS, generate_candidates,
// the DNS -> SMTP-batch -> enrichment waterfall, find_emails_batch's
// per-domain sequential grouping under an outer semaphore).
package finder

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"mailnexy/internal/catchall"
	"mailnexy/internal/domaincache"
	"mailnexy/internal/dnsinfo"
	"mailnexy/internal/model"
	"mailnexy/internal/smtpclient"
)

// DefaultConcurrency bounds how many domains FindBatch probes at once,
// mirroring verifier.DefaultConcurrency's outer-semaphore shape.
const DefaultConcurrency = 10

// pattern is one local-part generation rule, in corporate-frequency order.
type pattern struct {
	name string
	fn   func(first, last string) string
}

// patterns is the fixed 10-entry precedence list from generate_candidates.
var patterns = []pattern{
	{"first.last", func(f, l string) string { return f + "." + l }},
	{"flast", func(f, l string) string { return string(f[0]) + l }},
	{"firstl", func(f, l string) string { return f + string(l[0]) }},
	{"first", func(f, l string) string { return f }},
	{"first_last", func(f, l string) string { return f + "_" + l }},
	{"first-last", func(f, l string) string { return f + "-" + l }},
	{"f.last", func(f, l string) string { return string(f[0]) + "." + l }},
	{"lastf", func(f, l string) string { return l + string(f[0]) }},
	{"last.first", func(f, l string) string { return l + "." + f }},
	{"firstlast", func(f, l string) string { return f + l }},
}

// GenerateCandidates produces every candidate address for (first, last,
// domain), deduplicated by the generated address, in pattern precedence
// order.
func GenerateCandidates(firstName, lastName, domain string) []model.CandidateResult {
	first := strings.ToLower(strings.TrimSpace(firstName))
	last := strings.ToLower(strings.TrimSpace(lastName))

	if first == "" {
		return nil
	}

	seen := make(map[string]bool)
	var out []model.CandidateResult
	for _, p := range patterns {
		if last == "" && p.name != "first" {
			continue
		}
		local := p.fn(first, last)
		email := local + "@" + domain
		if seen[email] {
			continue
		}
		seen[email] = true
		out = append(out, model.CandidateResult{Email: email, Pattern: p.name})
	}
	return out
}

// GuessAdapter is a paid name+domain search step that returns a candidate
// email it believes belongs to the person, distinct from enrichment.Adapter
// (which confirms a specific, already-guessed email). Grounded on
// email_finder.py's _search_exa/_search_prospeo/_search_apollo_api, which
// search by name rather than verify a guess.
type GuessAdapter interface {
	Name() string
	CostUSD() float64
	Guess(ctx context.Context, firstName, lastName, domain string) (model.CandidateResult, bool, error)
}

// Finder runs the domain-intel -> candidate-generation -> SMTP-batch ->
// enrichment-waterfall pipeline for one person at a time, and a
// domain-grouped batch variant for many.
type Finder struct {
	Resolver *dnsinfo.Resolver
	SMTP     *smtpclient.Client
	Cache    *domaincache.Cache
	Adapters []GuessAdapter // ordered cheapest-first, tried in order until one hits
}

// New builds a Finder. cache may be nil to disable domain-intel reuse
// across calls (each lookup then re-resolves DNS and re-probes catch-all).
func New(resolver *dnsinfo.Resolver, smtp *smtpclient.Client, cache *domaincache.Cache, adapters ...GuessAdapter) *Finder {
	return &Finder{Resolver: resolver, SMTP: smtp, Cache: cache, Adapters: adapters}
}

// domainIntel returns (dns, catchAll-tri, catchAllKnown) for domain,
// consulting and populating the shared cache when one is configured.
func (f *Finder) domainIntel(ctx context.Context, domain string) (model.DnsInfo, model.Tri, bool, error) {
	if f.Cache != nil {
		if dns, ok := f.Cache.GetDNS(domain); ok {
			if catchAll, known := f.Cache.GetCatchAll(domain); known {
				return dns, catchAll, true, nil
			}
			if dns.HasMX {
				catchAll := f.SMTP.CheckCatchAll(ctx, domain, dns.MXHosts[0])
				f.Cache.SetCatchAll(domain, catchAll)
				return dns, catchAll, true, nil
			}
			return dns, nil, false, nil
		}
	}

	dns, err := f.Resolver.Lookup(ctx, domain)
	if err != nil {
		return dns, nil, false, err
	}
	if f.Cache != nil {
		f.Cache.SetDNS(domain, dns)
	}

	if !dns.HasMX {
		return dns, nil, false, nil
	}

	catchAll := f.SMTP.CheckCatchAll(ctx, domain, dns.MXHosts[0])
	if f.Cache != nil {
		f.Cache.SetCatchAll(domain, catchAll)
	}
	return dns, catchAll, true, nil
}

// Find runs the full waterfall for one person at one domain.
func (f *Finder) Find(ctx context.Context, firstName, lastName, domain string) model.FinderResult {
	domain = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(domain, "@")))
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)

	dns, catchAll, catchAllKnown, err := f.domainIntel(ctx, domain)
	if err != nil || !dns.HasMX {
		return model.FinderResult{Error: fmt.Sprintf("no MX records for %s", domain), Provider: dns.Provider}
	}
	mxHost := dns.MXHosts[0]

	candidates := GenerateCandidates(firstName, lastName, domain)
	var cost float64

	// Phase 3: SMTP batch verification, only meaningful when the domain is
	// known not to be a catch-all (a catch-all would accept every
	// candidate, making the probe uninformative).
	isCatchAll := catchAllKnown && catchAll != nil && *catchAll
	isKnownNotCatchAll := catchAllKnown && catchAll != nil && !*catchAll

	if isKnownNotCatchAll && len(candidates) > 0 {
		emails := make([]string, len(candidates))
		for i, c := range candidates {
			emails[i] = c.Email
		}
		responses := f.SMTP.CheckBatch(ctx, emails, mxHost)
		for i := range candidates {
			if i < len(responses) {
				candidates[i].SMTPCode = responses[i].Code
				if responses[i].Code == 250 {
					candidates[i].Confidence = 0.95
					candidates[i].Source = "smtp"
				}
			}
		}

		for _, c := range candidates {
			if c.SMTPCode == 250 {
				return model.FinderResult{
					Email: c.Email, Found: true, Confidence: c.Confidence, Method: "smtp_verified",
					Reachability: model.Safe, DomainIsCatchAll: model.TriFalse(), Provider: dns.Provider,
					CandidatesTried: len(candidates), Candidates: candidates, CostUSD: cost,
				}
			}
		}
		// every candidate 5xx, or mixed/timeout results: fall through to enrichment either way.
	}

	// Phase 4: enrichment waterfall, cheapest adapter first.
	for _, adapter := range f.Adapters {
		cost += adapter.CostUSD()
		guess, found, guessErr := adapter.Guess(ctx, firstName, lastName, domain)
		if guessErr != nil || !found {
			continue
		}
		candidates = append(candidates, guess)
		return model.FinderResult{
			Email: guess.Email, Found: true, Confidence: guess.Confidence, Method: guess.Source,
			Reachability: model.Risky, DomainIsCatchAll: catchAllResultTri(catchAllKnown, catchAll),
			Provider: dns.Provider, CandidatesTried: len(candidates), Candidates: candidates, CostUSD: cost,
		}
	}

	// Phase 4e: pattern-scoring fallback, catch-all domains only.
	if isCatchAll && len(candidates) > 0 {
		best := candidates[0] // first.last is the most common pattern
		score := catchall.Evaluate(catchall.Input{Email: best.Email, FirstName: firstName, LastName: lastName})
		best.Confidence = score.Confidence
		best.Source = "pattern_score"
		candidates[0] = best

		reach := model.Unknown
		if score.Confidence >= 0.50 {
			reach = model.Risky
		}
		return model.FinderResult{
			Email: best.Email, Found: true, Confidence: score.Confidence, Method: "pattern_score_catchall",
			Reachability: reach, DomainIsCatchAll: model.TriTrue(), Provider: dns.Provider,
			CandidatesTried: len(candidates), Candidates: candidates, CostUSD: cost,
		}
	}

	return model.FinderResult{
		Found: false, Method: "exhausted", DomainIsCatchAll: catchAllResultTri(catchAllKnown, catchAll),
		Provider: dns.Provider, CandidatesTried: len(candidates), Candidates: candidates, CostUSD: cost,
	}
}

func catchAllResultTri(known bool, t model.Tri) model.Tri {
	if !known {
		return nil
	}
	return t
}

// Contact is one person-at-domain lookup request for FindBatch.
type Contact struct {
	FirstName   string
	LastName    string
	Domain      string
	CompanyName string
}

// FindBatch finds emails for many contacts, grouping by domain so that
// contacts at the same domain reuse warmed domain intelligence and run one
// after another, while different domains run concurrently under a bounded
// outer semaphore. Contacts do not share an SMTP connection: each contact's
// Find opens its own CheckBatch session. Grounded on find_emails_batch's
// defaultdict-by-domain + asyncio.Semaphore(concurrency) shape.
func (f *Finder) FindBatch(ctx context.Context, contacts []Contact, concurrency int) []model.FinderResult {
	if concurrency <= 0 {
		concurrency = 10
	}

	results := make([]model.FinderResult, len(contacts))

	groups := make(map[string][]int)
	var domainOrder []string
	for i, c := range contacts {
		domain := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(c.Domain, "@")))
		if _, ok := groups[domain]; !ok {
			domainOrder = append(domainOrder, domain)
		}
		groups[domain] = append(groups[domain], i)
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, domain := range domainOrder {
		domain := domain
		indices := groups[domain]
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Pre-warm domain intelligence once per domain so every
			// contact in the group reuses it instead of racing to
			// populate the cache independently.
			_, _, _, _ = f.domainIntel(ctx, domain)

			for _, idx := range indices {
				idx := idx
				sem <- struct{}{}
				func() {
					defer func() { <-sem }()
					defer func() {
						if r := recover(); r != nil {
							results[idx] = model.FinderResult{Error: fmt.Sprintf("panic: %v", r)}
						}
					}()
					c := contacts[idx]
					results[idx] = f.Find(ctx, c.FirstName, c.LastName, domain)
				}()
			}
		}()
	}

	wg.Wait()
	return results
}
