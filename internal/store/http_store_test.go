package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mailnexy/internal/model"
)

func TestHTTPStoreLookupHit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing/incorrect auth header: %q", r.Header.Get("Authorization"))
		}
		rows := []httpRow{{Email: "a@b.com", Normalized: "a@b.com", Reachability: "safe"}}
		json.NewEncoder(w).Encode(rows)
	}))
	defer srv.Close()

	s := NewHTTPStore(srv.URL, "test-key")
	result, found, err := s.Lookup(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected a hit")
	}
	if result.Reachability != model.Safe {
		t.Errorf("expected safe, got %s", result.Reachability)
	}
}

func TestHTTPStoreLookupMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]httpRow{})
	}))
	defer srv.Close()

	s := NewHTTPStore(srv.URL, "test-key")
	_, found, err := s.Lookup(context.Background(), "nobody@b.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("expected a miss")
	}
}

func TestHTTPStoreUpsertBatchSendsOnConflict(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RawQuery
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewHTTPStore(srv.URL, "test-key")
	n, err := s.UpsertBatch(context.Background(), []model.VerificationResult{{Email: "a@b.com"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 written, got %d", n)
	}
	if gotPath != "on_conflict=email" {
		t.Errorf("expected on_conflict=email query, got %q", gotPath)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	pos := cursorPosition{VerifiedAt: time.Now().Truncate(time.Second), Email: "a@b.com"}
	token, err := encodeCursor(pos)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := decodeCursor(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Email != pos.Email {
		t.Errorf("email mismatch: got %q want %q", decoded.Email, pos.Email)
	}
	if !decoded.VerifiedAt.Equal(pos.VerifiedAt) {
		t.Errorf("verifiedAt mismatch: got %v want %v", decoded.VerifiedAt, pos.VerifiedAt)
	}
}

func TestCursorRejectsTamperedToken(t *testing.T) {
	token, _ := encodeCursor(cursorPosition{VerifiedAt: time.Now(), Email: "a@b.com"})
	tampered := token[:len(token)-2] + "xx"
	if _, err := decodeCursor(tampered); err == nil {
		t.Fatal("expected tampered cursor to fail verification")
	}
}
