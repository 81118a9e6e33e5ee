package provider

import (
	"testing"

	"mailnexy/internal/model"
)

func TestGet(t *testing.T) {
	if p := Get(model.ProviderGmail); p.DoCatchAll {
		t.Error("gmail should skip catch-all probe")
	}
	if p := Get(model.ProviderHotmail); p.DoSMTP || !p.AutoMarkRisky {
		t.Error("hotmail should skip SMTP and auto-mark risky")
	}
	if p := Get(model.Provider("bogus")); p.Provider != model.ProviderGeneric {
		t.Error("unknown provider should fall back to generic policy")
	}
}
