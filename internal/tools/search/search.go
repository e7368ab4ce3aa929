// Package search runs web searches for adverse media and employment
// evidence through a grounded language model.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"kycgate/internal/agent/model"
	"kycgate/internal/tools"
	pkgstrings "kycgate/pkg/platform/strings"
)

const (
	maxMediaQueries      = 3
	maxEmploymentQueries = 2
	maxSnippet           = 500
)

// Generator is the model backend used to run searches.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Searcher answers search queries through a model.
type Searcher struct {
	gen   Generator
	model string
}

// New creates a Searcher. An empty model selects the generator default.
func New(gen Generator, model string) *Searcher {
	return &Searcher{gen: gen, model: model}
}

const searchPrompt = `Search the web for: %s

Provide factual information with citations. Focus on:
1. Reputable news sources (Reuters, Bloomberg, BBC, local major news)
2. Government watchlists and official records
3. Professional networking sites for employment verification

Return results in JSON format with 'results' array containing 'title', 'snippet', 'url' fields.`

// Search runs a single query.
func (s *Searcher) Search(ctx context.Context, query string) (tools.SearchResult, error) {
	text, err := s.gen.Generate(ctx, s.model, fmt.Sprintf(searchPrompt, query))
	if err != nil {
		return tools.SearchResult{}, fmt.Errorf("search %q: %w", query, err)
	}
	return tools.SearchResult{Query: query, Results: parseHits(text)}, nil
}

func parseHits(text string) []tools.SearchHit {
	cleaned := model.StripFences(text)

	var parsed struct {
		Results []tools.SearchHit `json:"results"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return []tools.SearchHit{{
			Title:   "Search Result",
			Snippet: pkgstrings.Truncate(strings.TrimSpace(text), maxSnippet),
		}}
	}
	if parsed.Results == nil {
		return []tools.SearchHit{}
	}
	return parsed.Results
}

// MediaQueries returns the adverse media queries for name, in priority order.
func MediaQueries(name string, extraTerms ...string) []string {
	q := []string{
		fmt.Sprintf(`"%s" fraud OR scandal OR corruption`, name),
		fmt.Sprintf(`"%s" money laundering OR sanctions`, name),
		fmt.Sprintf(`"%s" politically exposed person OR PEP`, name),
		fmt.Sprintf(`"%s" criminal OR investigation`, name),
	}
	for _, term := range extraTerms {
		q = append(q, fmt.Sprintf(`"%s" %s`, name, term))
	}
	return q
}

// AdverseMedia sweeps the top media queries for name. Individual query
// failures are recorded; the sweep fails only when every query fails.
func (s *Searcher) AdverseMedia(ctx context.Context, name string) (tools.MediaSearchResult, error) {
	queries := MediaQueries(name)[:maxMediaQueries]
	out := tools.MediaSearchResult{Name: name, Searches: []tools.SearchResult{}}

	var lastErr error
	for _, q := range queries {
		res, err := s.Search(ctx, q)
		if err != nil {
			lastErr = err
			out.Failed = append(out.Failed, q)
			continue
		}
		out.Searches = append(out.Searches, res)
	}
	if len(out.Searches) == 0 && lastErr != nil {
		return tools.MediaSearchResult{}, lastErr
	}
	return out, nil
}

// EmploymentQueries returns the employment verification queries.
func EmploymentQueries(name, company, linkedInURL string) []string {
	var q []string
	if linkedInURL != "" {
		q = append(q, fmt.Sprintf("site:linkedin.com %s", name))
	}
	if company != "" {
		q = append(q, fmt.Sprintf(`"%s" "%s" employee OR staff OR director`, name, company))
	}
	return append(q, fmt.Sprintf(`"%s" professional profile OR LinkedIn`, name))
}

// Employment looks for public evidence of the claimed employment.
func (s *Searcher) Employment(ctx context.Context, name, company, linkedInURL string) (tools.EmploymentEvidence, error) {
	queries := EmploymentQueries(name, company, linkedInURL)
	if len(queries) > maxEmploymentQueries {
		queries = queries[:maxEmploymentQueries]
	}

	out := tools.EmploymentEvidence{Name: name, Company: company, Results: []tools.SearchHit{}, Sources: []string{}}
	var lastErr error
	succeeded := 0
	for _, q := range queries {
		res, err := s.Search(ctx, q)
		if err != nil {
			lastErr = err
			continue
		}
		succeeded++
		out.Results = append(out.Results, res.Results...)
	}
	if succeeded == 0 && lastErr != nil {
		return tools.EmploymentEvidence{}, lastErr
	}

	urls := make([]string, 0, len(out.Results))
	for _, hit := range out.Results {
		urls = append(urls, hit.URL)
	}
	out.Sources = pkgstrings.DedupeAndTrim(urls)
	out.Verified = len(out.Results) > 0
	return out, nil
}
