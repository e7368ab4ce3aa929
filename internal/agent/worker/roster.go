package worker

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"kycgate/internal/screening/models"
	"kycgate/internal/tools"
)

//go:embed roster.yaml
var defaultRoster []byte

// Roster declares the worker roles of a full analysis, in run order.
type Roster struct {
	Workers []RoleSpec `yaml:"workers"`
}

// RoleSpec declares one worker role.
type RoleSpec struct {
	Role         string   `yaml:"role"`
	Model        string   `yaml:"model"`
	Description  string   `yaml:"description"`
	Tools        []string `yaml:"tools"`
	ToolOnly     bool     `yaml:"tool_only"`
	Instructions string   `yaml:"instructions"`
}

// DefaultRoster returns the built-in roster.
func DefaultRoster() (*Roster, error) {
	return ParseRoster(defaultRoster)
}

// LoadRoster reads a roster file. An empty path selects the built-in roster.
func LoadRoster(path string) (*Roster, error) {
	if path == "" {
		return DefaultRoster()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return ParseRoster(data)
}

// ParseRoster decodes and validates a roster document.
func ParseRoster(data []byte) (*Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	if len(r.Workers) == 0 {
		return nil, fmt.Errorf("parse roster: no workers declared")
	}
	seen := make(map[string]bool, len(r.Workers))
	for i, w := range r.Workers {
		if _, ok := models.ParseRole(w.Role); !ok {
			return nil, fmt.Errorf("parse roster: worker %d has unknown role %q", i, w.Role)
		}
		if seen[w.Role] {
			return nil, fmt.Errorf("parse roster: role %s declared twice", w.Role)
		}
		seen[w.Role] = true
		if !w.ToolOnly && w.Model == "" {
			return nil, fmt.Errorf("parse roster: role %s needs a model", w.Role)
		}
	}
	return &r, nil
}

// Toolbox holds the capabilities workers can bind to.
type Toolbox struct {
	Documents    DocumentAnalyzer
	Employment   EmploymentSearcher
	Media        MediaSearcher
	Screener     Screener
	Wealth       WealthCalculator
	Jurisdiction string
}

func (tb Toolbox) step(name string) (Step, error) {
	missing := fmt.Errorf("tool %s is not configured", name)
	switch tools.Capability(name) {
	case tools.CapabilityDocumentAnalysis:
		if tb.Documents == nil {
			return nil, missing
		}
		return &DocumentStep{Analyzer: tb.Documents}, nil
	case tools.CapabilityEmploymentSearch:
		if tb.Employment == nil {
			return nil, missing
		}
		return &EmploymentStep{Searcher: tb.Employment}, nil
	case tools.CapabilityAdverseMedia:
		if tb.Media == nil {
			return nil, missing
		}
		return &AdverseMediaStep{Searcher: tb.Media}, nil
	case tools.CapabilitySanctionsScreen:
		if tb.Screener == nil {
			return nil, missing
		}
		return &SanctionsStep{Screener: tb.Screener, Jurisdiction: tb.Jurisdiction}, nil
	case tools.CapabilityWealthCalculation:
		if tb.Documents == nil || tb.Wealth == nil {
			return nil, missing
		}
		return &WealthStep{Analyzer: tb.Documents, Calculator: tb.Wealth}, nil
	default:
		return nil, fmt.Errorf("unknown tool %q", name)
	}
}

// Build constructs the roster's workers in declaration order.
func (r *Roster) Build(tb Toolbox, analyzer Analyzer, opts ...Option) ([]*Worker, error) {
	workers := make([]*Worker, 0, len(r.Workers))
	for _, spec := range r.Workers {
		role, _ := models.ParseRole(spec.Role)
		steps := make([]Step, 0, len(spec.Tools))
		for _, name := range spec.Tools {
			s, err := tb.step(name)
			if err != nil {
				return nil, fmt.Errorf("build %s: %w", spec.Role, err)
			}
			steps = append(steps, s)
		}
		w, err := New(Config{
			Role:         role,
			Model:        spec.Model,
			Description:  spec.Description,
			Instructions: spec.Instructions,
			Steps:        steps,
			ToolOnly:     spec.ToolOnly,
		}, analyzer, opts...)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", spec.Role, err)
		}
		workers = append(workers, w)
	}
	return workers, nil
}
