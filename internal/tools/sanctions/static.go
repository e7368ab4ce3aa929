// Package sanctions screens subjects against sanctions and PEP watchlists,
// either from a local YAML watchlist or a remote screening API.
package sanctions

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"kycgate/internal/tools"
	pkgstrings "kycgate/pkg/platform/strings"
)

// DefaultLists are the lists reported as checked when a watchlist file does
// not declare its own.
var DefaultLists = []string{
	"OFAC SDN",
	"UN Consolidated List",
	"EU Sanctions List",
	"DJBC Indonesia",
}

// Entry kinds.
const (
	KindSanctions = "sanctions"
	KindPEP       = "pep"
)

// Match types.
const (
	MatchExact          = "EXACT_NAME"
	MatchAlias          = "ALIAS"
	MatchIdentity       = "IDENTITY_NUMBER"
	MatchPartial        = "PARTIAL_NAME"
	partialMatchScore   = 0.75
	minPartialNameParts = 2
)

//go:embed watchlist.yaml
var defaultWatchlist []byte

// Watchlist is the on-disk watchlist format.
type Watchlist struct {
	Lists   []string `yaml:"lists"`
	Entries []Entry  `yaml:"entries"`
}

// Entry is one listed person.
type Entry struct {
	Name           string   `yaml:"name"`
	Aliases        []string `yaml:"aliases"`
	IdentityNumber string   `yaml:"identity_number"`
	List           string   `yaml:"list"`
	Kind           string   `yaml:"kind"`
	Details        string   `yaml:"details"`
}

// ParseWatchlist decodes and validates a YAML watchlist.
func ParseWatchlist(data []byte) (*Watchlist, error) {
	var wl Watchlist
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("parse watchlist: %w", err)
	}
	for i, e := range wl.Entries {
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("watchlist entry %d: name is required", i)
		}
		switch e.Kind {
		case KindSanctions, KindPEP:
		case "":
			wl.Entries[i].Kind = KindSanctions
		default:
			return nil, fmt.Errorf("watchlist entry %d: unknown kind %q", i, e.Kind)
		}
	}
	if len(wl.Lists) == 0 {
		wl.Lists = DefaultLists
	}
	return &wl, nil
}

// LoadWatchlist reads a watchlist from path. An empty path loads the
// embedded default.
func LoadWatchlist(path string) (*Watchlist, error) {
	if path == "" {
		return ParseWatchlist(defaultWatchlist)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}
	return ParseWatchlist(data)
}

// StaticScreener matches subjects against an in-memory watchlist.
type StaticScreener struct {
	watchlist *Watchlist
}

// NewStaticScreener creates a screener over wl.
func NewStaticScreener(wl *Watchlist) *StaticScreener {
	return &StaticScreener{watchlist: wl}
}

// Screen matches req by identity number, exact name, alias, and token overlap.
func (s *StaticScreener) Screen(ctx context.Context, req tools.ScreeningRequest) (tools.ScreeningResult, error) {
	if err := ctx.Err(); err != nil {
		return tools.ScreeningResult{}, err
	}
	name := pkgstrings.NormalizeName(req.Name)
	if name == "" {
		return tools.ScreeningResult{}, tools.NewFailure(tools.CapabilitySanctionsScreen, tools.FailureBadData, "subject name is required", nil)
	}

	res := tools.ScreeningResult{
		Screened:      true,
		Name:          req.Name,
		WatchlistHits: []tools.WatchlistHit{},
		ListsChecked:  append([]string(nil), s.watchlist.Lists...),
		Provider:      "static_watchlist",
	}
	for _, e := range s.watchlist.Entries {
		hit, ok := match(e, name, req.IdentityNumber)
		if !ok {
			continue
		}
		res.WatchlistHits = append(res.WatchlistHits, hit)
		switch e.Kind {
		case KindPEP:
			res.PEPMatch = true
		default:
			res.SanctionsMatch = true
		}
	}
	return res, nil
}

func match(e Entry, name, identityNumber string) (tools.WatchlistHit, bool) {
	hit := tools.WatchlistHit{ListName: e.List, MatchedName: e.Name, Details: e.Details}
	if e.IdentityNumber != "" && identityNumber != "" && e.IdentityNumber == identityNumber {
		hit.MatchType, hit.Score = MatchIdentity, 1
		return hit, true
	}
	if pkgstrings.NormalizeName(e.Name) == name {
		hit.MatchType, hit.Score = MatchExact, 1
		return hit, true
	}
	for _, alias := range e.Aliases {
		if pkgstrings.NormalizeName(alias) == name {
			hit.MatchType, hit.Score = MatchAlias, 1
			return hit, true
		}
	}
	if containsAllParts(name, pkgstrings.NormalizeName(e.Name)) {
		hit.MatchType, hit.Score = MatchPartial, partialMatchScore
		return hit, true
	}
	return tools.WatchlistHit{}, false
}

// containsAllParts reports whether every token of listed appears in subject.
func containsAllParts(subject, listed string) bool {
	parts := strings.Fields(listed)
	if len(parts) < minPartialNameParts {
		return false
	}
	have := make(map[string]struct{})
	for _, p := range strings.Fields(subject) {
		have[p] = struct{}{}
	}
	for _, p := range parts {
		if _, ok := have[p]; !ok {
			return false
		}
	}
	return true
}
