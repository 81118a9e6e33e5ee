// Package provider holds the static per-Provider verification policy table
// (C6). Grounded on the original engine/providers.py ProviderConfig
// dataclass and _PROVIDER_CONFIGS dict.
package provider

import "mailnexy/internal/model"

// Policy describes how to verify emails at a given provider.
type Policy struct {
	Provider      model.Provider
	DoSMTP        bool
	DoCatchAll    bool
	AutoMarkRisky bool
	Notes         string
}

var policies = map[model.Provider]Policy{
	model.ProviderGmail: {
		Provider:   model.ProviderGmail,
		DoSMTP:     true,
		DoCatchAll: false,
		Notes:      "Gmail always returns definitive 550 for nonexistent addresses",
	},
	model.ProviderGoogleWorkspace: {
		Provider:   model.ProviderGoogleWorkspace,
		DoSMTP:     true,
		DoCatchAll: false,
		Notes:      "Google Workspace returns definitive 550 for nonexistent addresses",
	},
	model.ProviderYahoo: {
		Provider:   model.ProviderYahoo,
		DoSMTP:     true,
		DoCatchAll: true,
		Notes:      "Yahoo standard SMTP verification",
	},
	model.ProviderMicrosoft365: {
		Provider:   model.ProviderMicrosoft365,
		DoSMTP:     true,
		DoCatchAll: true,
		Notes:      "M365 B2B - many domains have catch-all enabled",
	},
	model.ProviderHotmail: {
		Provider:      model.ProviderHotmail,
		DoSMTP:        false,
		DoCatchAll:    false,
		AutoMarkRisky: true,
		Notes:         "Hotmail/Outlook.com B2C: SMTP unreliable, auto-mark risky",
	},
	model.ProviderGeneric: {
		Provider:   model.ProviderGeneric,
		DoSMTP:     true,
		DoCatchAll: true,
		Notes:      "Generic provider: full SMTP + catch-all probe",
	},
}

// Get returns the policy for a provider, defaulting to generic for unknown tags.
func Get(p model.Provider) Policy {
	if policy, ok := policies[p]; ok {
		return policy
	}
	return policies[model.ProviderGeneric]
}
