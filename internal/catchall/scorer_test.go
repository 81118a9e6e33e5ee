package catchall

import "testing"

func TestEvaluateExactNameMatch(t *testing.T) {
	s := Evaluate(Input{Email: "john.doe@bigco.com", FirstName: "John", LastName: "Doe"})
	if !s.IsLikelyReal {
		t.Errorf("expected likely-real for exact first.last match, got confidence %.2f", s.Confidence)
	}
}

func TestEvaluateNameMismatchPenalized(t *testing.T) {
	withName := Evaluate(Input{Email: "xq7z9@bigco.com", FirstName: "John", LastName: "Doe"})
	withoutName := Evaluate(Input{Email: "xq7z9@bigco.com"})
	if withName.Confidence >= withoutName.Confidence {
		t.Errorf("mismatched name should reduce confidence: with=%.2f without=%.2f", withName.Confidence, withoutName.Confidence)
	}
}

func TestEvaluateRedFlagCapsConfidence(t *testing.T) {
	s := Evaluate(Input{Email: "noreply@bigco.com", DirectoryHit: &PersonMatch{Confidence: 0.9}})
	if s.Confidence > 0.05 {
		t.Errorf("red flag local part should hard-cap confidence near 0.05, got %.2f", s.Confidence)
	}
	if s.IsLikelyReal {
		t.Error("red-flagged address should never be likely-real")
	}
}

func TestEvaluateEduDomainBoost(t *testing.T) {
	base := Evaluate(Input{Email: "jsmith@college.com"})
	edu := Evaluate(Input{Email: "jsmith@college.edu"})
	if edu.Confidence <= base.Confidence {
		t.Errorf(".edu domain should boost confidence over .com baseline: edu=%.2f base=%.2f", edu.Confidence, base.Confidence)
	}
}

func TestEvaluateDirectoryAndLinkedInStack(t *testing.T) {
	s := Evaluate(Input{
		Email:        "j.smith@bigco.com",
		FirstName:    "Jane",
		LastName:     "Smith",
		DirectoryHit: &PersonMatch{Confidence: 0.9, Source: "apollo"},
		LinkedInHit:  &PersonMatch{Confidence: 1.0, Source: "linkedin"},
	})
	if s.Confidence != 1.0 {
		t.Errorf("expected confidence clamped to 1.0 with full signal stack, got %.2f", s.Confidence)
	}
}
