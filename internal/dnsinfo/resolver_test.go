package dnsinfo

import (
	"testing"

	"mailnexy/internal/model"
)

func TestDetectProvider(t *testing.T) {
	cases := []struct {
		mx     []string
		domain string
		want   model.Provider
	}{
		{[]string{"gmail-smtp-in.l.google.com"}, "gmail.com", model.ProviderGmail},
		{[]string{"gmail-smtp-in.l.google.com"}, "googlemail.com", model.ProviderGmail},
		{[]string{"aspmx.l.google.com"}, "company.com", model.ProviderGoogleWorkspace},
		{[]string{"mta7.am0.yahoodns.net"}, "yahoo.com", model.ProviderYahoo},
		{[]string{"company-com.mail.protection.outlook.com"}, "company.com", model.ProviderMicrosoft365},
		{[]string{"consumer.olc.protection.outlook.com"}, "outlook.com", model.ProviderHotmail},
		{[]string{"mx1.hotmail.com"}, "hotmail.com", model.ProviderHotmail},
		{[]string{"mx.unknownhost.net"}, "unknownhost.net", model.ProviderGeneric},
		{nil, "nomx.com", model.ProviderGeneric},
	}

	for _, c := range cases {
		got := DetectProvider(c.mx, c.domain)
		if got != c.want {
			t.Errorf("DetectProvider(%v, %q) = %q, want %q", c.mx, c.domain, got, c.want)
		}
	}
}
