package finder

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"

	"mailnexy/internal/domaincache"
	"mailnexy/internal/model"
	"mailnexy/internal/smtpclient"
)

func TestGenerateCandidatesOrderAndDedup(t *testing.T) {
	got := GenerateCandidates("Jane", "Doe", "bigco.com")
	want := []string{
		"jane.doe@bigco.com", "jdoe@bigco.com", "janed@bigco.com", "jane@bigco.com",
		"jane_doe@bigco.com", "jane-doe@bigco.com", "j.doe@bigco.com", "doej@bigco.com",
		"doe.jane@bigco.com", "janedoe@bigco.com",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d candidates, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i].Email != w {
			t.Errorf("candidate %d = %q, want %q", i, got[i].Email, w)
		}
	}
}

func TestGenerateCandidatesSingleNameOnlyFirstPattern(t *testing.T) {
	got := GenerateCandidates("Madonna", "", "bigco.com")
	if len(got) != 1 || got[0].Pattern != "first" {
		t.Fatalf("expected a single first-only candidate, got %+v", got)
	}
}

// fakeServer is a minimal scripted SMTP server, mirroring
// smtpclient's own test fixture.
func fakeServer(t *testing.T, responses []string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		w := bufio.NewWriter(conn)
		r := bufio.NewReader(conn)

		write := func(line string) {
			w.WriteString(line + "\r\n")
			w.Flush()
		}

		if len(responses) == 0 {
			return
		}
		write(responses[0])
		for _, resp := range responses[1:] {
			if _, err := r.ReadString('\n'); err != nil {
				return
			}
			write(resp)
		}
	}()

	return ln.Addr().String()
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

func TestFindSMTPVerifiedWinnerOnNonCatchAllDomain(t *testing.T) {
	// first.last is tried first by CheckBatch's shared connection over all
	// 10 generated candidates; accept only that one RCPT so the winner is
	// unambiguous.
	responses := []string{
		"220 fake.example.com ESMTP",
		"250 fake.example.com",
		"250 2.1.0 Sender OK",
		"250 2.1.5 Recipient OK", // jane.doe@bigco.com (first.last)
	}
	for i := 0; i < 9; i++ {
		responses = append(responses, "550 5.1.1 User unknown")
	}
	responses = append(responses, "221 Bye")
	addr := fakeServer(t, responses)
	host, port := splitHostPort(t, addr)

	smtp := smtpclient.New(smtpclient.Options{Port: port})
	cache := domaincache.New()
	cache.SetDNS("bigco.com", model.DnsInfo{Domain: "bigco.com", MXHosts: []string{host}, HasMX: true, Provider: model.ProviderGeneric})
	cache.SetCatchAll("bigco.com", model.TriFalse())

	f := New(nil, smtp, cache)
	result := f.Find(context.Background(), "Jane", "Doe", "bigco.com")

	if !result.Found || result.Method != "smtp_verified" || result.Reachability != model.Safe {
		t.Fatalf("expected smtp_verified safe winner, got %+v", result)
	}
	if result.Email != "jane.doe@bigco.com" {
		t.Errorf("expected first.last to win, got %q", result.Email)
	}
}

func TestFindPatternScoreFallbackOnCatchAllDomain(t *testing.T) {
	cache := domaincache.New()
	cache.SetDNS("catchall.com", model.DnsInfo{Domain: "catchall.com", MXHosts: []string{"mx.catchall.com"}, HasMX: true, Provider: model.ProviderGeneric})
	cache.SetCatchAll("catchall.com", model.TriTrue())

	smtp := smtpclient.New(smtpclient.Options{})
	f := New(nil, smtp, cache)
	result := f.Find(context.Background(), "Jane", "Doe", "catchall.com")

	if !result.Found || result.Method != "pattern_score_catchall" {
		t.Fatalf("expected pattern-score catch-all fallback, got %+v", result)
	}
	if result.Email != "jane.doe@catchall.com" {
		t.Errorf("expected first.last as the scored candidate, got %q", result.Email)
	}
}

func TestFindReturnsErrorWhenNoMX(t *testing.T) {
	cache := domaincache.New()
	cache.SetDNS("nomx.com", model.DnsInfo{Domain: "nomx.com", HasMX: false, Provider: model.ProviderGeneric})

	smtp := smtpclient.New(smtpclient.Options{})
	f := New(nil, smtp, cache)
	result := f.Find(context.Background(), "Jane", "Doe", "nomx.com")

	if result.Found || result.Error == "" {
		t.Fatalf("expected an error result for a domain with no MX, got %+v", result)
	}
}

type stubGuessAdapter struct {
	email string
	cost  float64
}

func (s *stubGuessAdapter) Name() string     { return "stub" }
func (s *stubGuessAdapter) CostUSD() float64 { return s.cost }
func (s *stubGuessAdapter) Guess(ctx context.Context, firstName, lastName, domain string) (model.CandidateResult, bool, error) {
	return model.CandidateResult{Email: s.email, Source: "stub", Confidence: 0.8}, true, nil
}

func TestFindUsesEnrichmentAdapterWhenSMTPExhausted(t *testing.T) {
	addr := fakeServer(t, []string{
		"220 fake.example.com ESMTP",
		"250 fake.example.com",
		"250 2.1.0 Sender OK",
		"550 5.1.1 User unknown",
		"221 Bye",
	})
	host, port := splitHostPort(t, addr)

	smtp := smtpclient.New(smtpclient.Options{Port: port})
	cache := domaincache.New()
	cache.SetDNS("bigco.com", model.DnsInfo{Domain: "bigco.com", MXHosts: []string{host}, HasMX: true, Provider: model.ProviderGeneric})
	cache.SetCatchAll("bigco.com", model.TriFalse())

	f := New(nil, smtp, cache, &stubGuessAdapter{email: "jane.doe@bigco.com", cost: 0.01})
	result := f.Find(context.Background(), "Jane", "Doe", "bigco.com")

	if !result.Found || result.Method != "stub" || result.CostUSD != 0.01 {
		t.Fatalf("expected the stub adapter's guess to win, got %+v", result)
	}
}

func TestFindBatchGroupsByDomainAndFillsAllResults(t *testing.T) {
	cache := domaincache.New()
	cache.SetDNS("catchall.com", model.DnsInfo{Domain: "catchall.com", MXHosts: []string{"mx.catchall.com"}, HasMX: true, Provider: model.ProviderGeneric})
	cache.SetCatchAll("catchall.com", model.TriTrue())

	smtp := smtpclient.New(smtpclient.Options{})
	f := New(nil, smtp, cache)

	contacts := []Contact{
		{FirstName: "Jane", LastName: "Doe", Domain: "catchall.com"},
		{FirstName: "John", LastName: "Smith", Domain: "catchall.com"},
		{FirstName: "Amy", LastName: "Lee", Domain: "@catchall.com"},
	}
	results := f.FindBatch(context.Background(), contacts, 2)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if !r.Found || !strings.HasSuffix(r.Email, "@catchall.com") {
			t.Errorf("result %d: expected a catch-all-scored email, got %+v", i, r)
		}
	}
}
