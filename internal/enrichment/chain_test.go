package enrichment

import (
	"context"
	"testing"
)

func TestEnrichUnknownNoAdaptersFallsBackToPattern(t *testing.T) {
	chain := NewChain(nil)
	out := chain.EnrichUnknown(context.Background(), "jane.doe@randomco.com", "", false)
	if out.Status != StatusValid {
		t.Errorf("expected strong first.last pattern to resolve valid without adapters, got %+v", out)
	}
	if out.CostUSD != 0 {
		t.Errorf("expected zero cost when no paid adapter ran, got %f", out.CostUSD)
	}
}

func TestEnrichUnknownRoleAccountShortCircuits(t *testing.T) {
	chain := NewChain(nil, &stubAdapter{match: Match{Found: true, Confidence: 0.9, Source: "stub"}})
	out := chain.EnrichUnknown(context.Background(), "support@randomco.com", "", false)
	if out.Status != StatusRisky {
		t.Errorf("expected role account to short-circuit as risky before any adapter runs, got %+v", out)
	}
	if out.CostUSD != 0 {
		t.Errorf("expected zero cost since role-account short-circuit skips adapters, got %f", out.CostUSD)
	}
}

func TestEnrichUnknownCatchAllHighConfidence(t *testing.T) {
	chain := NewChain(nil)
	out := chain.EnrichUnknown(context.Background(), "jane.doe@bigco.com", "", true)
	if out.Status != StatusValid {
		t.Errorf("expected high-confidence catch-all name match to resolve valid, got %+v", out)
	}
}

type stubAdapter struct {
	match Match
	err   error
}

func (s *stubAdapter) Name() string     { return "stub" }
func (s *stubAdapter) CostUSD() float64 { return 0.01 }
func (s *stubAdapter) Find(ctx context.Context, email string) (Match, error) {
	return s.match, s.err
}
