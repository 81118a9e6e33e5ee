package enrichment

import "testing"

func TestExtractNameFirstLast(t *testing.T) {
	n := ExtractName("jane.doe@bigco.com")
	if n.First != "Jane" || n.Last != "Doe" || n.Pattern != "first.last" {
		t.Errorf("unexpected extraction: %+v", n)
	}
}

func TestExtractNameNoPattern(t *testing.T) {
	n := ExtractName("xk92mqzpt@bigco.com")
	if n.First != "" || n.Last != "" {
		t.Errorf("expected no extraction for random string, got %+v", n)
	}
}

func TestFreePatternFlagsRoleAccounts(t *testing.T) {
	r := FreePattern("support@bigco.com")
	if r.Status != PatternRisky || r.Reason != "role_account_support" {
		t.Errorf("expected role account classification, got %+v", r)
	}
}

func TestFreePatternCorporateDomainBoost(t *testing.T) {
	r := FreePattern("jane.doe@apple.com")
	if r.Status != PatternValid {
		t.Errorf("expected valid for strong pattern on corporate domain, got %+v", r)
	}
}

func TestFreePatternWeakFallback(t *testing.T) {
	r := FreePattern("zq7x@randomco.com")
	if r.Status != PatternRisky {
		t.Errorf("expected risky fallback for unmatched pattern, got %+v", r)
	}
}
