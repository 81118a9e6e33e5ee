package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"mailnexy/internal/model"
)

// HTTPStore talks to a remote verification-results table over a small
// JSON-over-HTTP contract shaped like PostgREST's upsert-on-conflict
// convention (spec.md §4.11 backend 2), rather than a byte-identical
// PostgREST wire client — see DESIGN.md C11 for why. Stats fetches the
// counted columns of every row and counts them client-side; it does not read
// Content-Range headers.
type HTTPStore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPStore constructs a remote store client against baseURL (e.g.
// "https://db.example.com/rest/v1/verified_emails"), authenticating with
// apiKey as a bearer token.
func NewHTTPStore(baseURL, apiKey string) *HTTPStore {
	return &HTTPStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (s *HTTPStore) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	return req, nil
}

func (s *HTTPStore) Lookup(ctx context.Context, normalizedEmail string) (model.VerificationResult, bool, error) {
	path := "?normalized=eq." + url.QueryEscape(normalizedEmail) + "&limit=1"
	req, err := s.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return model.VerificationResult{}, false, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return model.VerificationResult{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.VerificationResult{}, false, fmt.Errorf("remote store lookup: unexpected status %d", resp.StatusCode)
	}

	var rows []httpRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return model.VerificationResult{}, false, err
	}
	if len(rows) == 0 {
		return model.VerificationResult{}, false, nil
	}
	return rows[0].toResult(), true, nil
}

func (s *HTTPStore) Upsert(ctx context.Context, result model.VerificationResult) error {
	_, err := s.UpsertBatch(ctx, []model.VerificationResult{result})
	return err
}

func (s *HTTPStore) UpsertBatch(ctx context.Context, results []model.VerificationResult) (int, error) {
	rows := make([]httpRow, len(results))
	for i, r := range results {
		rows[i] = fromResult(r)
	}

	req, err := s.newRequest(ctx, http.MethodPost, "?on_conflict=email", rows)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return 0, fmt.Errorf("remote store upsert: unexpected status %d", resp.StatusCode)
	}
	return len(results), nil
}

func (s *HTTPStore) Stats(ctx context.Context) (Stats, error) {
	req, err := s.newRequest(ctx, http.MethodGet, "?select=reachability,domain,is_catch_all,is_disposable", nil)
	if err != nil {
		return Stats{}, err
	}
	req.Header.Set("Prefer", "count=exact")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Stats{}, err
	}
	defer resp.Body.Close()

	var rows []httpRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return Stats{}, err
	}

	stats := Stats{ByReachability: make(map[model.Reachability]int64)}
	domainCounts := make(map[string]int64)
	for _, r := range rows {
		stats.Total++
		stats.ByReachability[model.Reachability(r.Reachability)]++
		if r.IsCatchAll != nil && *r.IsCatchAll {
			stats.CatchAllCount++
		}
		if r.IsDisposable {
			stats.DisposableCount++
		}
		domainCounts[r.Domain]++
	}
	for domain, count := range domainCounts {
		stats.TopDomains = append(stats.TopDomains, DomainCount{Domain: domain, Count: count})
	}
	return stats, nil
}

func (s *HTTPStore) Query(ctx context.Context, filter QueryFilter) (QueryPage, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	path := fmt.Sprintf("?order=verified_at.desc,email.asc&limit=%d", limit)
	if filter.Reachability != "" {
		path += "&reachability=eq." + url.QueryEscape(string(filter.Reachability))
	}
	if filter.Domain != "" {
		path += "&domain=eq." + url.QueryEscape(filter.Domain)
	}
	if filter.Cursor != "" {
		decoded, err := decodeCursor(filter.Cursor)
		if err != nil {
			return QueryPage{}, fmt.Errorf("invalid cursor: %w", err)
		}
		path += "&verified_at=lt." + url.QueryEscape(decoded.VerifiedAt.Format(time.RFC3339Nano))
	}

	req, err := s.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return QueryPage{}, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return QueryPage{}, err
	}
	defer resp.Body.Close()

	var rows []httpRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return QueryPage{}, err
	}

	page := QueryPage{}
	for _, r := range rows {
		page.Results = append(page.Results, r.toResult())
	}
	if len(rows) == limit {
		last := rows[len(rows)-1]
		cursor, err := encodeCursor(cursorPosition{VerifiedAt: last.VerifiedAtTime(), Email: last.Email})
		if err == nil {
			page.NextCursor = cursor
		}
	}
	return page, nil
}

func (s *HTTPStore) Close() error { return nil }

// httpRow is the JSON wire shape exchanged with the remote table.
type httpRow struct {
	Email         string  `json:"email"`
	Normalized    string  `json:"normalized"`
	Reachability  string  `json:"reachability"`
	IsDeliverable *bool   `json:"is_deliverable"`
	IsCatchAll    *bool   `json:"is_catch_all"`
	IsDisposable  bool    `json:"is_disposable"`
	IsRole        bool    `json:"is_role"`
	IsFree        bool    `json:"is_free"`
	MXHost        string  `json:"mx_host"`
	SMTPCode      int     `json:"smtp_code"`
	SMTPMessage   string  `json:"smtp_message"`
	Provider      string  `json:"provider"`
	Domain        string  `json:"domain"`
	VerifiedAt    string  `json:"verified_at"`
}

func (r httpRow) VerifiedAtTime() time.Time {
	t, _ := time.Parse(time.RFC3339Nano, r.VerifiedAt)
	return t
}

func (r httpRow) toResult() model.VerificationResult {
	return model.VerificationResult{
		Email:         r.Email,
		Normalized:    r.Normalized,
		Reachability:  model.Reachability(r.Reachability),
		IsDeliverable: r.IsDeliverable,
		IsCatchAll:    r.IsCatchAll,
		IsDisposable:  r.IsDisposable,
		IsRole:        r.IsRole,
		IsFree:        r.IsFree,
		MXHost:        r.MXHost,
		SMTPCode:      r.SMTPCode,
		SMTPMessage:   r.SMTPMessage,
		Provider:      model.Provider(r.Provider),
		Domain:        r.Domain,
		VerifiedAt:    r.VerifiedAtTime(),
	}
}

func fromResult(r model.VerificationResult) httpRow {
	verifiedAt := r.VerifiedAt
	if verifiedAt.IsZero() {
		verifiedAt = time.Now().UTC()
	}
	return httpRow{
		Email:         r.Email,
		Normalized:    r.Normalized,
		Reachability:  string(r.Reachability),
		IsDeliverable: r.IsDeliverable,
		IsCatchAll:    r.IsCatchAll,
		IsDisposable:  r.IsDisposable,
		IsRole:        r.IsRole,
		IsFree:        r.IsFree,
		MXHost:        r.MXHost,
		SMTPCode:      r.SMTPCode,
		SMTPMessage:   r.SMTPMessage,
		Provider:      string(r.Provider),
		Domain:        r.Domain,
		VerifiedAt:    verifiedAt.Format(time.RFC3339Nano),
	}
}
