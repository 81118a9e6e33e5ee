package domaincache

import (
	"testing"
	"time"

	"mailnexy/internal/model"
)

func TestDNSRoundTrip(t *testing.T) {
	c := New()
	if _, ok := c.GetDNS("example.com"); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.SetDNS("example.com", model.DnsInfo{Domain: "example.com", HasMX: true})
	info, ok := c.GetDNS("example.com")
	if !ok || !info.HasMX {
		t.Fatal("expected cache hit with HasMX true")
	}
}

func TestDNSExpiry(t *testing.T) {
	c := New()
	c.mxTTL = time.Millisecond
	c.SetDNS("example.com", model.DnsInfo{Domain: "example.com", HasMX: true})
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.GetDNS("example.com"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestCatchAllDistinguishesUncachedFromIndeterminate(t *testing.T) {
	c := New()
	if _, ok := c.GetCatchAll("example.com"); ok {
		t.Fatal("expected miss before any set")
	}
	c.SetCatchAll("example.com", model.TriNil())
	v, ok := c.GetCatchAll("example.com")
	if !ok {
		t.Fatal("expected hit after caching an indeterminate result")
	}
	if v != nil {
		t.Fatal("expected cached value to be nil (indeterminate)")
	}
}

func TestSweepRemovesFullyExpiredEntries(t *testing.T) {
	c := New()
	c.mxTTL = time.Millisecond
	c.catchAllTTL = time.Millisecond
	c.SetDNS("stale.com", model.DnsInfo{Domain: "stale.com", HasMX: true})
	time.Sleep(5 * time.Millisecond)
	c.Sweep(nil)
	if stats := c.Stats(); stats.TotalDomains != 0 {
		t.Fatalf("expected sweep to remove expired domain, got %d remaining", stats.TotalDomains)
	}
}

func TestStatsCountsOnlyFreshEntries(t *testing.T) {
	c := New()
	c.SetDNS("fresh.com", model.DnsInfo{Domain: "fresh.com", HasMX: true})
	c.SetCatchAll("fresh.com", model.TriTrue())
	stats := c.Stats()
	if stats.TotalDomains != 1 || stats.DNSValid != 1 || stats.CatchAllValid != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
