package tiered

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mailnexy/internal/dnsinfo"
	"mailnexy/internal/metadata"
	"mailnexy/internal/model"
	"mailnexy/internal/smtpclient"
	"mailnexy/internal/store"
	"mailnexy/internal/verifier"
)

// acceptRCPT, rejectRCPT: the two scripted reply sets a connection can get
// from fakeSMTPServer. Both present a normal greeting/EHLO/MAIL-FROM
// handshake; they differ only on the RCPT TO line so the main SMTP check
// and the catch-all probe (opened as a second connection) can be told
// apart deterministically.
var (
	acceptRCPT = []string{
		"220 fake.example.com ESMTP",
		"250 fake.example.com",
		"250 2.1.0 Sender OK",
		"250 2.1.5 Recipient OK",
		"221 Bye",
	}
	rejectRCPT = []string{
		"220 fake.example.com ESMTP",
		"250 fake.example.com",
		"250 2.1.0 Sender OK",
		"550 5.1.1 User unknown",
		"221 Bye",
	}
)

// fakeSMTPServer is a minimal scripted SMTP server, mirroring
// smtpclient's own test fixture: it accepts the first connection's RCPT
// (the real address VerifyOne checks) and rejects every connection after
// that (the catch-all probe's random address), so a full VerifyOne run
// reaches a deterministic non-catch-all result without real network access.
func fakeSMTPServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	var connCount int32

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			responses := rejectRCPT
			if atomic.AddInt32(&connCount, 1) == 1 {
				responses = acceptRCPT
			}
			go serveFakeSMTPConn(conn, responses)
		}
	}()

	return ln.Addr().String()
}

func serveFakeSMTPConn(conn net.Conn, responses []string) {
	defer conn.Close()
	w := bufio.NewWriter(conn)
	r := bufio.NewReader(conn)

	write := func(line string) {
		w.WriteString(line + "\r\n")
		w.Flush()
	}

	write(responses[0])
	for _, resp := range responses[1:] {
		if _, err := r.ReadString('\n'); err != nil {
			return
		}
		write(resp)
	}
}

func splitHostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split %q: %v", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port %q: %v", portStr, err)
	}
	return host, port
}

// newRoleFilterEngine wires a real Verifier against fakeSMTPServer, with DNS
// seeded so no real lookup happens, so e.Verify(ctx, email, 3) drives the
// actual role-account gate at engine.go's Verify instead of a hand-rolled
// copy of its condition.
func newRoleFilterEngine(t *testing.T) *Engine {
	t.Helper()
	addr := fakeSMTPServer(t)
	host, port := splitHostPort(t, addr)

	resolver := dnsinfo.New(0)
	resolver.SeedCache("bigco.com", model.DnsInfo{
		Domain: "bigco.com", MXHosts: []string{host}, HasMX: true, Provider: model.ProviderGeneric,
	})

	smtp := smtpclient.New(smtpclient.Options{Port: port})
	classifier := metadata.NewDefault()
	v := verifier.New(resolver, classifier, smtp, nil)
	st := newMemStore()

	e := New(resolver, classifier, v, st, nil, nil, 10, 0)
	return e
}

// memStore is a minimal in-memory store.Store double for exercising Tier 1
// cache hits/misses without a real database.
type memStore struct {
	mu   sync.Mutex
	rows map[string]model.VerificationResult
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]model.VerificationResult)}
}

func (s *memStore) Lookup(ctx context.Context, normalizedEmail string) (model.VerificationResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[normalizedEmail]
	return r, ok, nil
}

func (s *memStore) Upsert(ctx context.Context, result model.VerificationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[result.Normalized] = result
	return nil
}

func (s *memStore) UpsertBatch(ctx context.Context, results []model.VerificationResult) (int, error) {
	for _, r := range results {
		_ = s.Upsert(ctx, r)
	}
	return len(results), nil
}

func (s *memStore) Stats(ctx context.Context) (store.Stats, error) { return store.Stats{}, nil }

func (s *memStore) Query(ctx context.Context, filter store.QueryFilter) (store.QueryPage, error) {
	return store.QueryPage{}, nil
}

func (s *memStore) Close() error { return nil }

func TestVerifyTier1CacheHit(t *testing.T) {
	st := newMemStore()
	st.rows["person@bigco.com"] = model.VerificationResult{
		Email: "person@bigco.com", Normalized: "person@bigco.com",
		Reachability: model.Safe, VerifiedAt: time.Now(),
	}

	e := New(nil, nil, nil, st, nil, nil, 10, 1)
	defer e.Stop()

	outcome := e.Verify(context.Background(), "person@bigco.com", 0)
	if outcome.Tier != 1 || outcome.Reason != "cached_result" {
		t.Fatalf("expected a tier 1 cache hit, got %+v", outcome)
	}
}

func TestVerifyTier1CacheExpired(t *testing.T) {
	st := newMemStore()
	st.rows["person@bigco.com"] = model.VerificationResult{
		Email: "person@bigco.com", Normalized: "person@bigco.com",
		Reachability: model.Safe, VerifiedAt: time.Now().Add(-60 * 24 * time.Hour),
	}

	e := New(nil, metadata.NewDefault(), nil, st, nil, nil, 10, 1)
	defer e.Stop()

	_, ok := e.tier1Cached(context.Background(), "person@bigco.com")
	if ok {
		t.Fatalf("expected a 60-day-old cache entry to be treated as expired")
	}
}

func TestVerifyTier2FastRejectsBadSyntax(t *testing.T) {
	e := New(nil, metadata.NewDefault(), nil, nil, nil, nil, 10, 1)
	defer e.Stop()

	outcome := e.Verify(context.Background(), "not-an-email", 0)
	if outcome.Result.Reachability != model.Invalid {
		t.Fatalf("expected invalid for malformed syntax, got %+v", outcome)
	}
	if outcome.Tier != 2 {
		t.Fatalf("expected the syntax rejection to resolve at tier 2, got tier %d", outcome.Tier)
	}
}

func TestComputeFastTierConfidenceGmailBoost(t *testing.T) {
	meta := metadata.Classification{IsFree: true}
	got := computeFastTierConfidence(meta, model.ProviderGmail)
	want := clamp(0.5 + 0.3 + 0.1 + 0.1)
	if got != want {
		t.Errorf("confidence = %f, want %f", got, want)
	}
}

func TestComputeFastTierConfidenceDisposablePenalized(t *testing.T) {
	meta := metadata.Classification{IsDisposable: true}
	got := computeFastTierConfidence(meta, model.ProviderGeneric)
	want := clamp(0.5 - 0.2 - 0.1)
	if got != want {
		t.Errorf("confidence = %f, want %f", got, want)
	}
}

func TestInferReachabilityNeverReturnsSafe(t *testing.T) {
	if r := inferReachability(metadata.Classification{}); r != model.Unknown {
		t.Errorf("expected unknown for a clean address absent SMTP, got %v", r)
	}
	if r := inferReachability(metadata.Classification{IsRole: true}); r != model.Risky {
		t.Errorf("expected risky for a role account, got %v", r)
	}
	if r := inferReachability(metadata.Classification{IsDisposable: true}); r != model.Risky {
		t.Errorf("expected risky for a disposable domain, got %v", r)
	}
}

// TestVerifyRoleAccountFilteredInvalidByDefault drives the real Verify
// pipeline (forceTier 3, so a full SMTP check runs) against a role-account
// address whose handshake SMTP accepts, to exercise the actual gate at
// engine.go's Verify rather than a copy of its condition.
func TestVerifyRoleAccountFilteredInvalidByDefault(t *testing.T) {
	e := newRoleFilterEngine(t)
	defer e.Stop()

	if !e.RoleAccountFilterInvalid {
		t.Fatalf("expected role-account filtering enabled by default")
	}

	outcome := e.Verify(context.Background(), "admin@bigco.com", 3)

	if !outcome.Result.IsRole {
		t.Fatalf("expected admin@bigco.com to classify as a role account, got %+v", outcome.Result)
	}
	if outcome.Result.Reachability != model.Invalid {
		t.Fatalf("expected a role account to be forced invalid when filtering is enabled, got %+v", outcome.Result)
	}
	if outcome.Reason != "role_account_filtered" {
		t.Fatalf("expected reason role_account_filtered, got %q", outcome.Reason)
	}
}

// TestVerifyRoleAccountFilterDisabledPreservesSMTPResult disables the gate
// and asserts the SMTP-derived reachability (Risky, since score() never
// grants a role account Safe) stands instead of being forced to Invalid.
func TestVerifyRoleAccountFilterDisabledPreservesSMTPResult(t *testing.T) {
	e := newRoleFilterEngine(t)
	e.RoleAccountFilterInvalid = false
	defer e.Stop()

	outcome := e.Verify(context.Background(), "admin@bigco.com", 3)

	if !outcome.Result.IsRole {
		t.Fatalf("expected admin@bigco.com to classify as a role account, got %+v", outcome.Result)
	}
	if outcome.Result.Reachability == model.Invalid {
		t.Fatalf("expected the SMTP-derived reachability to stand when filtering is disabled, got forced Invalid")
	}
	if outcome.Result.Reachability != model.Risky {
		t.Fatalf("expected the SMTP-derived Risky reachability to stand, got %v", outcome.Result.Reachability)
	}
	if outcome.Reason == "role_account_filtered" {
		t.Fatalf("expected the role-account gate not to fire when disabled, got reason %q", outcome.Reason)
	}
}

func TestEnqueueBackfillDropsWhenQueueFull(t *testing.T) {
	resolver := dnsinfo.New(0)
	v := verifier.New(resolver, metadata.NewDefault(), nil, nil)
	st := newMemStore()

	e := New(resolver, metadata.NewDefault(), v, st, nil, nil, 1, 0)
	e.Stop() // halt the worker pool first so nothing drains the queue under test

	e.queue <- backfillJob{email: "a@bigco.com"} // fill the single slot
	e.enqueueBackfill("b@bigco.com")             // must not block

	if len(e.queue) != 1 {
		t.Fatalf("expected the queue to remain at capacity 1, got %d", len(e.queue))
	}
}
