package finder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"mailnexy/internal/model"
)

// ExaGuessAdapter searches Exa for mentions of an email at domain, distinct
// from enrichment.ExaAdapter which confirms a specific pre-guessed address:
// this variant has no candidate yet and extracts one from search snippets.
// Grounded on email_finder.py's _search_exa.
type ExaGuessAdapter struct {
	APIKey     string
	HTTPClient *http.Client
}

func (a *ExaGuessAdapter) Name() string     { return "exa" }
func (a *ExaGuessAdapter) CostUSD() float64 { return 0.0005 }

func (a *ExaGuessAdapter) Guess(ctx context.Context, firstName, lastName, domain string) (model.CandidateResult, bool, error) {
	if firstName == "" || lastName == "" {
		return model.CandidateResult{}, false, nil
	}
	companyWord := strings.Split(domain, ".")[0]
	queries := []string{
		fmt.Sprintf("%q email @%s", firstName+" "+lastName, domain),
		fmt.Sprintf("%q %s site:linkedin.com", firstName+" "+lastName, companyWord),
	}
	emailAtDomain := regexp.MustCompile(`[\w.+-]+@` + regexp.QuoteMeta(domain))

	client := a.client()
	for _, query := range queries {
		body, _ := json.Marshal(map[string]any{"query": query, "num_results": 3})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.exa.ai/search", bytes.NewReader(body))
		if err != nil {
			return model.CandidateResult{}, false, err
		}
		req.Header.Set("x-api-key", a.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			continue
		}
		var data struct {
			Results []struct {
				Text string `json:"text"`
			} `json:"results"`
		}
		decodeErr := json.NewDecoder(resp.Body).Decode(&data)
		resp.Body.Close()
		if decodeErr != nil || resp.StatusCode != http.StatusOK {
			continue
		}

		var snippets []string
		for _, r := range data.Results {
			snippets = append(snippets, r.Text)
		}
		text := strings.ToLower(strings.Join(snippets, " "))
		if match := emailAtDomain.FindString(text); match != "" {
			return model.CandidateResult{Email: match, Pattern: "exa_search", Confidence: 0.85, Source: "exa"}, true, nil
		}
	}

	return model.CandidateResult{}, false, nil
}

func (a *ExaGuessAdapter) client() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return &http.Client{Timeout: 5 * time.Second}
}

// ProspeoGuessAdapter finds a person's email via Prospeo's enrich-person
// API, grounded on email_finder.py's _search_prospeo.
type ProspeoGuessAdapter struct {
	APIKey     string
	HTTPClient *http.Client
}

func (a *ProspeoGuessAdapter) Name() string     { return "prospeo" }
func (a *ProspeoGuessAdapter) CostUSD() float64 { return 0.006 }

func (a *ProspeoGuessAdapter) Guess(ctx context.Context, firstName, lastName, domain string) (model.CandidateResult, bool, error) {
	payload := map[string]any{
		"data": map[string]any{
			"first_name":      firstName,
			"last_name":       lastName,
			"company_website": domain,
		},
		"only_verified_email": true,
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.prospeo.io/enrich-person", bytes.NewReader(body))
	if err != nil {
		return model.CandidateResult{}, false, err
	}
	req.Header.Set("X-KEY", a.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := a.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return model.CandidateResult{}, false, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.CandidateResult{}, false, nil
	}

	var data struct {
		Error  bool `json:"error"`
		Person struct {
			Email struct {
				Email  string `json:"email"`
				Status string `json:"status"`
			} `json:"email"`
		} `json:"person"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil || data.Error {
		return model.CandidateResult{}, false, nil
	}
	email := strings.TrimSpace(data.Person.Email.Email)
	if email == "" || !strings.Contains(email, "@") {
		return model.CandidateResult{}, false, nil
	}

	confidence := 0.85
	if data.Person.Email.Status == "VERIFIED" {
		confidence = 0.95
	}
	return model.CandidateResult{Email: email, Pattern: "prospeo_enrich", Confidence: confidence, Source: "prospeo"}, true, nil
}

// ApolloGuessAdapter queries Apollo's people-match API by name and domain
// rather than confirming a specific email, grounded on email_finder.py's
// _search_apollo_api.
type ApolloGuessAdapter struct {
	APIKey     string
	HTTPClient *http.Client
}

func (a *ApolloGuessAdapter) Name() string     { return "apollo" }
func (a *ApolloGuessAdapter) CostUSD() float64 { return 0.10 }

func (a *ApolloGuessAdapter) Guess(ctx context.Context, firstName, lastName, domain string) (model.CandidateResult, bool, error) {
	companyWord := strings.Split(domain, ".")[0]
	payload := map[string]any{
		"first_name":        firstName,
		"last_name":         lastName,
		"organization_name": companyWord,
		"domain":            domain,
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.apollo.io/v1/people/match", bytes.NewReader(body))
	if err != nil {
		return model.CandidateResult{}, false, err
	}
	req.Header.Set("X-Api-Key", a.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := a.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return model.CandidateResult{}, false, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.CandidateResult{}, false, nil
	}

	var data struct {
		Person *struct {
			Email string `json:"email"`
		} `json:"person"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil || data.Person == nil || data.Person.Email == "" {
		return model.CandidateResult{}, false, nil
	}

	return model.CandidateResult{Email: data.Person.Email, Pattern: "apollo_api", Confidence: 0.92, Source: "apollo_api"}, true, nil
}
