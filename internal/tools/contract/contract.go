// Package contract holds reusable test kits that every tool adapter must
// pass: successful calls yield results, failures follow the taxonomy.
package contract

import (
	"context"
	"testing"
	"time"

	"kycgate/internal/tools"
)

// Call adapts an adapter method to a uniform shape for contract tests.
type Call func(ctx context.Context) (any, error)

// ResultTest checks that an adapter call succeeds and optionally inspects
// the result.
type ResultTest struct {
	Name         string
	Capability   tools.Capability
	Call         Call
	ValidateFunc func(result any) error
}

// Suite is a collection of contract tests for one adapter.
type Suite struct {
	Adapter string
	Results []ResultTest
	Errors  []ErrorTest
}

// Run executes every test in the suite as a subtest.
func (s *Suite) Run(t *testing.T) {
	t.Helper()
	for _, test := range s.Results {
		t.Run(s.Adapter+"/"+test.Name, func(t *testing.T) {
			test.Run(t)
		})
	}
	for _, test := range s.Errors {
		t.Run(s.Adapter+"/"+test.Name, func(t *testing.T) {
			test.Run(t)
		})
	}
}

// Run executes a result contract test.
func (rt *ResultTest) Run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, failure := tools.Invoke(ctx, rt.Capability, func(ctx context.Context) (any, error) {
		return rt.Call(ctx)
	})
	if failure != nil {
		t.Fatalf("expected result, got failure: %v", failure)
	}
	if res == nil {
		t.Fatal("expected non-nil result")
	}
	if rt.ValidateFunc != nil {
		if err := rt.ValidateFunc(res); err != nil {
			t.Errorf("custom validation failed: %v", err)
		}
	}
}

// ErrorTest checks that an adapter failure lands in the expected category
// with the expected retry classification.
type ErrorTest struct {
	Name          string
	Capability    tools.Capability
	Call          Call
	ExpectedError tools.FailureCategory
	ExpectedRetry bool
}

// Run executes an error contract test.
func (et *ErrorTest) Run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, failure := tools.Invoke(ctx, et.Capability, func(ctx context.Context) (any, error) {
		return et.Call(ctx)
	})
	if failure == nil {
		t.Fatal("expected failure but got none")
	}
	if failure.Category != et.ExpectedError {
		t.Errorf("expected failure category %s, got %s (%v)", et.ExpectedError, failure.Category, failure)
	}
	if failure.Retryable() != et.ExpectedRetry {
		t.Errorf("expected retryable=%v, got %v", et.ExpectedRetry, failure.Retryable())
	}
	if failure.Reason == "" {
		t.Error("failure reason must not be empty")
	}
}
