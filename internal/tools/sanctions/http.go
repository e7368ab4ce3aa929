package sanctions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kycgate/internal/tools"
)

// HTTPScreener calls a remote screening API.
type HTTPScreener struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPScreener creates a client for the screening API at baseURL.
func NewHTTPScreener(baseURL, apiKey string, timeout time.Duration) *HTTPScreener {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPScreener{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type screenRequest struct {
	Name         string `json:"name"`
	NationalID   string `json:"national_id,omitempty"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
}

type screenResponse struct {
	SanctionsMatch *bool `json:"sanctions_match"`
	PEPMatch       bool  `json:"pep_match"`
	Hits           []struct {
		ListName    string  `json:"list_name"`
		MatchType   string  `json:"match_type"`
		MatchedName string  `json:"matched_name"`
		Score       float64 `json:"score"`
		Details     string  `json:"details"`
	} `json:"hits"`
	ListsChecked []string `json:"lists_checked"`
}

// Screen posts the subject to /v1/screen.
func (s *HTTPScreener) Screen(ctx context.Context, req tools.ScreeningRequest) (tools.ScreeningResult, error) {
	body, err := json.Marshal(screenRequest{
		Name:         req.Name,
		NationalID:   req.IdentityNumber,
		Jurisdiction: req.Jurisdiction,
	})
	if err != nil {
		return tools.ScreeningResult{}, fmt.Errorf("marshal screening request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/screen", bytes.NewReader(body))
	if err != nil {
		return tools.ScreeningResult{}, fmt.Errorf("create screening request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return tools.ScreeningResult{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return tools.ScreeningResult{}, statusFailure(resp.StatusCode)
	}

	var out screenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return tools.ScreeningResult{}, tools.NewFailure(tools.CapabilitySanctionsScreen, tools.FailureBadData, "malformed screening response", err)
	}
	if out.SanctionsMatch == nil {
		return tools.ScreeningResult{}, tools.NewFailure(tools.CapabilitySanctionsScreen, tools.FailureBadData, "screening response missing sanctions_match", nil)
	}

	res := tools.ScreeningResult{
		Screened:       true,
		Name:           req.Name,
		SanctionsMatch: *out.SanctionsMatch,
		PEPMatch:       out.PEPMatch,
		WatchlistHits:  make([]tools.WatchlistHit, 0, len(out.Hits)),
		ListsChecked:   out.ListsChecked,
		Provider:       "screening_api",
	}
	for _, h := range out.Hits {
		res.WatchlistHits = append(res.WatchlistHits, tools.WatchlistHit{
			ListName:    h.ListName,
			MatchType:   h.MatchType,
			MatchedName: h.MatchedName,
			Score:       h.Score,
			Details:     h.Details,
		})
	}
	if len(res.ListsChecked) == 0 {
		res.ListsChecked = DefaultLists
	}
	return res, nil
}

func statusFailure(status int) *tools.Failure {
	capability := tools.CapabilitySanctionsScreen
	switch {
	case status == http.StatusTooManyRequests:
		return tools.NewFailure(capability, tools.FailureRateLimited, "screening API rate limited", nil)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return tools.NewFailure(capability, tools.FailureAuthentication, "screening API rejected credentials", nil)
	case status == http.StatusNotFound:
		return tools.NewFailure(capability, tools.FailureNotFound, "screening endpoint not found", nil)
	case status == http.StatusGatewayTimeout:
		return tools.NewFailure(capability, tools.FailureTimeout, "screening API timed out", nil)
	case status >= 500:
		return tools.NewFailure(capability, tools.FailureTransport, fmt.Sprintf("screening API unavailable (status %d)", status), nil)
	default:
		return tools.NewFailure(capability, tools.FailureBadData, fmt.Sprintf("screening API rejected request (status %d)", status), nil)
	}
}
