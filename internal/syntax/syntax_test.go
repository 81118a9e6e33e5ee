package syntax

import "testing"

func TestValidate(t *testing.T) {
	cases := []struct {
		email      string
		wantValid  bool
		wantReason string
		wantNorm   string
	}{
		{"john.doe@gmail.com", true, "", "johndoe@gmail.com"},
		{"johndoe+tag@gmail.com", true, "", "johndoe@gmail.com"},
		{"john.doe@googlemail.com", true, "", "johndoe@gmail.com"},
		{"jane@company.com", true, "", "jane@company.com"},
		{"", false, "empty email", ""},
		{"a@b", false, "domain must have at least one dot", ""},
		{"no-at-sign.com", false, "must contain exactly one @", ""},
		{"two@at@signs.com", false, "must contain exactly one @", ""},
		{".leading@example.com", false, "leading or trailing dot in local part", ""},
		{"trailing.@example.com", false, "leading or trailing dot in local part", ""},
		{"double..dot@example.com", false, "consecutive dots in local part", ""},
		{"user@-bad.com", false, "", ""},
	}

	for _, c := range cases {
		got := Validate(c.email)
		if got.IsValid != c.wantValid {
			t.Errorf("Validate(%q).IsValid = %v, want %v (reason=%q)", c.email, got.IsValid, c.wantValid, got.Reason)
			continue
		}
		if c.wantReason != "" && got.Reason != c.wantReason {
			t.Errorf("Validate(%q).Reason = %q, want %q", c.email, got.Reason, c.wantReason)
		}
		if c.wantValid && c.wantNorm != "" && got.Normalized != c.wantNorm {
			t.Errorf("Validate(%q).Normalized = %q, want %q", c.email, got.Normalized, c.wantNorm)
		}
	}
}

func TestIdempotence(t *testing.T) {
	emails := []string{"John.Doe+x@GMail.com", "plain@Example.COM", "a.b.c@sub.example.org"}
	for _, e := range emails {
		first := Validate(e)
		if !first.IsValid {
			t.Fatalf("Validate(%q) unexpectedly invalid: %s", e, first.Reason)
		}
		second := Validate(first.Normalized)
		if !second.IsValid || second.Normalized != first.Normalized {
			t.Errorf("normalize not idempotent for %q: %q -> %q", e, first.Normalized, second.Normalized)
		}
	}
}
