// Package metadata classifies an address's domain/local-part against three
// frozen static sets: disposable domains, role-account prefixes, and free
// email providers (C2). Grounded on the original engine/metadata.py
// (full-domain then base-domain fallback) and the teacher's
// utils/verifier.go (loadDisposableDomains/freeEmailProviders pattern for
// seeding the sets).
package metadata

import "strings"

// Classifier holds the three static sets, loaded once at construction.
type Classifier struct {
	disposable map[string]struct{}
	free       map[string]struct{}
	role       map[string]struct{}
}

// Classification is the three-boolean result of Classify.
type Classification struct {
	IsDisposable bool
	IsRole       bool
	IsFree       bool
}

// New builds a Classifier from newline-delimited lists. Blank lines and
// lines starting with "#" are ignored, matching the original loader.
func New(disposableList, freeProviderList, roleAccountList string) *Classifier {
	return &Classifier{
		disposable: toSet(disposableList),
		free:       toSet(freeProviderList),
		role:       toSet(roleAccountList),
	}
}

// NewDefault builds a Classifier from the built-in seed lists (DefaultDisposableDomains, etc).
func NewDefault() *Classifier {
	return New(DefaultDisposableDomains, DefaultFreeProviders, DefaultRolePrefixes)
}

func toSet(list string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, line := range strings.Split(list, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set[strings.ToLower(line)] = struct{}{}
	}
	return set
}

// IsDisposable checks the full domain, then its last two labels.
func (c *Classifier) IsDisposable(domain string) bool {
	return containsDomainOrBase(c.disposable, domain)
}

// IsFreeProvider checks the full domain, then its last two labels.
func (c *Classifier) IsFreeProvider(domain string) bool {
	return containsDomainOrBase(c.free, domain)
}

// IsRoleAccount reports whether the whole local part (case-insensitive) is
// one of the role-account names; prefixes are not matched.
func (c *Classifier) IsRoleAccount(localPart string) bool {
	_, ok := c.role[strings.ToLower(localPart)]
	return ok
}

// Classify returns all three flags for a given (local part, domain) pair.
func (c *Classifier) Classify(localPart, domain string) Classification {
	return Classification{
		IsDisposable: c.IsDisposable(domain),
		IsRole:       c.IsRoleAccount(localPart),
		IsFree:       c.IsFreeProvider(domain),
	}
}

func containsDomainOrBase(set map[string]struct{}, domain string) bool {
	domain = strings.ToLower(domain)
	if _, ok := set[domain]; ok {
		return true
	}
	parts := strings.Split(domain, ".")
	if len(parts) > 2 {
		base := strings.Join(parts[len(parts)-2:], ".")
		if _, ok := set[base]; ok {
			return true
		}
	}
	return false
}
