// Package model holds the value and entity types shared across every
// verification, tiering, and finder component.
package model

import "time"

// Reachability is the four-valued outcome of verifying an email address.
type Reachability string

const (
	Safe    Reachability = "safe"
	Risky   Reachability = "risky"
	Invalid Reachability = "invalid"
	Unknown Reachability = "unknown"
)

// Provider identifies the mailbox-hosting family behind a domain's MX
// records. gmail and google_workspace share MX infrastructure but differ by
// whether the domain itself is the canonical free provider; hotmail and
// microsoft365 similarly split B2C from B2B on protection.outlook.com.
type Provider string

const (
	ProviderGmail           Provider = "gmail"
	ProviderGoogleWorkspace Provider = "google_workspace"
	ProviderYahoo           Provider = "yahoo"
	ProviderMicrosoft365    Provider = "microsoft365"
	ProviderHotmail         Provider = "hotmail"
	ProviderGeneric         Provider = "generic"
)

// EmailAddress is a syntactically validated, normalized address.
type EmailAddress struct {
	Raw        string
	LocalPart  string
	Domain     string
	Normalized string
}

// DnsInfo is the result of an MX/A/AAAA lookup for a domain.
type DnsInfo struct {
	Domain    string
	MXHosts   []string // ascending preference order, or the A/AAAA fallback target(s)
	HasMX     bool
	Provider  Provider
	FetchedAt time.Time
}

// SmtpResponse is a parsed SMTP reply: a code (0 meaning no response was
// obtained), the raw message, and flags describing what kind of rejection —
// if any — occurred. Invariant: for 2xx all flags are false.
type SmtpResponse struct {
	Code          int
	Message       string
	IsInvalid     bool
	IsGreylisted  bool
	IsBlacklisted bool
	IsFullInbox   bool
	IsDisabled    bool
}

// Tri is a tri-state boolean: true, false, or unknown (nil).
type Tri = *bool

func TriTrue() Tri  { v := true; return &v }
func TriFalse() Tri { v := false; return &v }
func TriNil() Tri   { return nil }

// VerificationResult is the persisted, cacheable outcome of verifying one
// address. Primary key = Normalized.
type VerificationResult struct {
	Email         string
	Normalized    string
	Reachability  Reachability
	IsDeliverable Tri
	IsCatchAll    Tri
	IsDisposable  bool
	IsRole        bool
	IsFree        bool
	MXHost        string
	SMTPCode      int
	SMTPMessage   string
	Provider      Provider
	Domain        string
	VerifiedAt    time.Time
	Error         string
}

// CandidateResult is one attempt made by the email finder.
type CandidateResult struct {
	Email      string
	Pattern    string
	SMTPCode   int
	Confidence float64
	Source     string
}

// FinderResult is the outcome of an email-finder lookup. Not persisted.
type FinderResult struct {
	Email             string
	Found             bool
	Confidence        float64
	Method            string
	Reachability      Reachability
	DomainIsCatchAll  Tri
	Provider          Provider
	CandidatesTried   int
	Candidates        []CandidateResult
	CostUSD           float64
	Error             string
}

// DomainIntel is a cached bundle of what we know about a domain.
type DomainIntel struct {
	DNS             DnsInfo
	DNSCachedAt     time.Time
	CatchAll        Tri
	CatchAllCachedAt time.Time
}
