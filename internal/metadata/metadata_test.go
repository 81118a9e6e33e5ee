package metadata

import "testing"

func TestClassify(t *testing.T) {
	c := NewDefault()

	if !c.IsDisposable("mailinator.com") {
		t.Error("expected mailinator.com to be disposable")
	}
	if !c.IsDisposable("sub.mailinator.com") {
		t.Error("expected base-domain fallback to catch sub.mailinator.com")
	}
	if c.IsDisposable("company.com") {
		t.Error("company.com should not be disposable")
	}

	if !c.IsFreeProvider("gmail.com") {
		t.Error("expected gmail.com to be free")
	}
	if c.IsFreeProvider("company.com") {
		t.Error("company.com should not be free")
	}

	if !c.IsRoleAccount("admin") {
		t.Error("expected admin to be a role account")
	}
	if c.IsRoleAccount("jsmith") {
		t.Error("jsmith should not be a role account")
	}

	result := c.Classify("noreply", "gmail.com")
	if !result.IsRole || !result.IsFree || result.IsDisposable {
		t.Errorf("unexpected classification: %+v", result)
	}
}
