package verifier

import (
	"testing"

	"mailnexy/internal/model"
)

func boolPtr(b bool) *bool { return &b }

func TestScoreSafeOnCleanAccept(t *testing.T) {
	smtp := &model.SmtpResponse{Code: 250}
	reachability, deliverable := score(smtp, nil, false, false, false)
	if reachability != model.Safe {
		t.Errorf("expected safe, got %s", reachability)
	}
	if deliverable == nil || !*deliverable {
		t.Error("expected deliverable=true")
	}
}

func TestScoreRiskyOnCatchAll(t *testing.T) {
	smtp := &model.SmtpResponse{Code: 250}
	reachability, _ := score(smtp, boolPtr(true), false, false, false)
	if reachability != model.Risky {
		t.Errorf("expected risky for catch-all domain, got %s", reachability)
	}
}

func TestScoreInvalidOnRejection(t *testing.T) {
	smtp := &model.SmtpResponse{Code: 550, IsInvalid: true}
	reachability, deliverable := score(smtp, nil, false, false, false)
	if reachability != model.Invalid {
		t.Errorf("expected invalid, got %s", reachability)
	}
	if deliverable == nil || *deliverable {
		t.Error("expected deliverable=false")
	}
}

func TestScoreUnknownOnConnectionFailure(t *testing.T) {
	smtp := &model.SmtpResponse{Code: 0}
	reachability, _ := score(smtp, nil, false, false, false)
	if reachability != model.Unknown {
		t.Errorf("expected unknown on code 0, got %s", reachability)
	}
}

func TestScoreProviderAutoRiskyOverridesEverything(t *testing.T) {
	reachability, deliverable := score(nil, nil, false, false, true)
	if reachability != model.Risky {
		t.Errorf("expected risky for auto-risky provider, got %s", reachability)
	}
	if deliverable != nil {
		t.Error("expected nil deliverable for auto-risky provider")
	}
}

func TestScoreNeverSafeForAutoRiskyProviderEvenWithCleanSMTP(t *testing.T) {
	smtp := &model.SmtpResponse{Code: 250}
	reachability, _ := score(smtp, nil, false, false, true)
	if reachability == model.Safe {
		t.Error("auto-risky providers must never be scored safe")
	}
}

func TestScoreGreylistIsRiskyNotUnknown(t *testing.T) {
	smtp := &model.SmtpResponse{Code: 450, IsGreylisted: true}
	reachability, deliverable := score(smtp, nil, false, false, false)
	if reachability != model.Risky {
		t.Errorf("expected risky for greylist, got %s", reachability)
	}
	if deliverable != nil {
		t.Error("expected nil deliverable for greylist (uncertain)")
	}
}

func TestDomainOf(t *testing.T) {
	if d := domainOf("Person@Example.COM"); d != "example.com" {
		t.Errorf("expected lowercased domain, got %q", d)
	}
	if d := domainOf("not-an-email"); d != "" {
		t.Errorf("expected empty domain for malformed input, got %q", d)
	}
}
