package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Match is a positive enrichment hit from any adapter.
type Match struct {
	Found      bool
	Confidence float64
	Name       string
	Title      string
	Source     string
}

// Adapter is one step of the enrichment waterfall. Cost is the adapter's
// flat per-call cost in USD, used to order the chain cheapest-first.
type Adapter interface {
	Name() string
	CostUSD() float64
	Find(ctx context.Context, email string) (Match, error)
}

// ExaAdapter performs a web-search confirmation via Exa's search API,
// shaped on original_source/engine/email_finder.py's _search_exa /
// enrichment.py's tier5a_exa_search: two targeted queries, confidence from
// whether the returned snippets contain the email, or the name + company.
type ExaAdapter struct {
	APIKey     string
	HTTPClient *http.Client
}

func (a *ExaAdapter) Name() string    { return "exa" }
func (a *ExaAdapter) CostUSD() float64 { return 0.0005 }

func (a *ExaAdapter) Find(ctx context.Context, email string) (Match, error) {
	name := ExtractName(email)
	if name.First == "" || name.Last == "" {
		return Match{Found: false}, nil
	}

	_, domain, _ := strings.Cut(strings.ToLower(email), "@")
	company := capitalize(strings.Split(domain, ".")[0])

	queries := []string{
		fmt.Sprintf("%s %s %s site:linkedin.com", name.First, name.Last, company),
		fmt.Sprintf("%s %s site:%s", name.First, name.Last, domain),
	}

	client := a.client()
	for _, query := range queries {
		body, _ := json.Marshal(map[string]any{"query": query, "num_results": 3})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.exa.ai/search", bytes.NewReader(body))
		if err != nil {
			return Match{}, err
		}
		req.Header.Set("x-api-key", a.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			continue // best-effort: an unreachable search provider falls through to the next query/adapter
		}
		var data struct {
			Results []struct {
				Text string `json:"text"`
			} `json:"results"`
		}
		decodeErr := json.NewDecoder(resp.Body).Decode(&data)
		resp.Body.Close()
		if decodeErr != nil || resp.StatusCode != http.StatusOK || len(data.Results) == 0 {
			continue
		}

		var snippets []string
		for _, r := range data.Results {
			snippets = append(snippets, r.Text)
		}
		text := strings.ToLower(strings.Join(snippets, " "))

		hasEmail := strings.Contains(text, strings.ToLower(email))
		hasName := strings.Contains(text, strings.ToLower(name.First)) && strings.Contains(text, strings.ToLower(name.Last))
		hasCompany := strings.Contains(text, strings.ToLower(company))

		confidence := 0.50
		switch {
		case hasEmail:
			confidence = 0.95
		case hasName && hasCompany:
			confidence = 0.85
		}

		if confidence >= 0.85 {
			return Match{Found: true, Confidence: confidence, Source: "exa"}, nil
		}
	}

	return Match{Found: false}, nil
}

func (a *ExaAdapter) client() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return &http.Client{Timeout: 5 * time.Second}
}

// ProspeoAdapter checks Prospeo's email-finder API, priced per credit and
// positioned between Exa and Apollo in the waterfall, per
// original_source/engine/email_finder.py's _search_prospeo (~$0.006/call).
type ProspeoAdapter struct {
	APIKey     string
	HTTPClient *http.Client
}

func (a *ProspeoAdapter) Name() string     { return "prospeo" }
func (a *ProspeoAdapter) CostUSD() float64 { return 0.006 }

func (a *ProspeoAdapter) Find(ctx context.Context, email string) (Match, error) {
	name := ExtractName(email)
	if name.First == "" || name.Last == "" {
		return Match{Found: false}, nil
	}
	_, domain, _ := strings.Cut(strings.ToLower(email), "@")

	payload := map[string]any{
		"first_name": name.First,
		"last_name":  name.Last,
		"company":    domain,
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.prospeo.io/email-finder", bytes.NewReader(body))
	if err != nil {
		return Match{}, err
	}
	req.Header.Set("X-KEY", a.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := a.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return Match{Found: false}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Match{Found: false}, nil
	}

	var data struct {
		Response struct {
			Email    string `json:"email"`
			Verified bool   `json:"email_status_verified"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil || data.Response.Email == "" {
		return Match{Found: false}, nil
	}

	confidence := 0.75
	if data.Response.Verified {
		confidence = 0.90
	}

	return Match{
		Found:      true,
		Confidence: confidence,
		Name:       name.First + " " + name.Last,
		Source:     "prospeo",
	}, nil
}

// ApolloAdapter checks Apollo.io's people-match API, with the same
// quality gate as original_source/engine/enrichment.py's tier5b_apollo_api:
// a match without a title, or whose name doesn't contain the extracted
// first/last name, is rejected rather than trusted.
type ApolloAdapter struct {
	APIKey     string
	HTTPClient *http.Client
}

func (a *ApolloAdapter) Name() string    { return "apollo" }
func (a *ApolloAdapter) CostUSD() float64 { return 0.10 }

func (a *ApolloAdapter) Find(ctx context.Context, email string) (Match, error) {
	name := ExtractName(email)

	payload := map[string]any{"email": email}
	if name.First != "" {
		payload["first_name"] = name.First
	}
	if name.Last != "" {
		payload["last_name"] = name.Last
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.apollo.io/v1/people/match", bytes.NewReader(body))
	if err != nil {
		return Match{}, err
	}
	req.Header.Set("X-Api-Key", a.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := a.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return Match{Found: false}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Match{Found: false}, nil
	}

	var data struct {
		Person *struct {
			Name  string `json:"name"`
			Title string `json:"title"`
		} `json:"person"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil || data.Person == nil {
		return Match{Found: false}, nil
	}

	if data.Person.Title == "" {
		return Match{Found: false}, nil
	}

	personName := strings.ToLower(data.Person.Name)
	if name.First != "" && name.Last != "" {
		if !strings.Contains(personName, strings.ToLower(name.First)) && !strings.Contains(personName, strings.ToLower(name.Last)) {
			return Match{Found: false}, nil
		}
	}

	return Match{
		Found:      true,
		Confidence: 0.92,
		Name:       data.Person.Name,
		Title:      data.Person.Title,
		Source:     "apollo",
	}, nil
}
