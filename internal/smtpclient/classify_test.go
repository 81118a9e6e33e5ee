package smtpclient

import "testing"

func TestParseResponse(t *testing.T) {
	cases := []struct {
		code int
		msg  string
		want string
	}{
		{250, "OK", "ok"},
		{550, "5.1.1 User unknown", "invalid"},
		{550, "5.1.1 Mailbox not found", "invalid"},
		{421, "4.7.0 Too many connections, try again later", "greylist"},
		{450, "4.2.2 Mailbox full", "fullinbox"},
		{450, "4.3.0 temporary failure", "greylist"},
		{421, "unexpected defer", "greylist"},
		{550, "Your IP has been blocked by Spamhaus", "blacklist"},
		{553, "5.7.1 relaying denied", "invalid"},
		{552, "5.2.2 quota exceeded", "fullinbox"},
		{550, "account has been disabled", "disabled"},
		{550, "5.1.1 unrouteable address", "invalid"},
	}

	for _, c := range cases {
		got := ParseResponse(c.code, c.msg)
		var label string
		switch {
		case got.IsBlacklisted:
			label = "blacklist"
		case got.IsDisabled:
			label = "disabled"
		case got.IsFullInbox:
			label = "fullinbox"
		case got.IsGreylisted:
			label = "greylist"
		case got.IsInvalid:
			label = "invalid"
		default:
			label = "ok"
		}
		if label != c.want {
			t.Errorf("ParseResponse(%d, %q) classified as %q, want %q", c.code, c.msg, label, c.want)
		}
	}
}
