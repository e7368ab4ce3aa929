// Package tools defines the uniform call-and-result contract for external
// capabilities (profile store, document storage, web search, sanctions
// screening). Adapters return plain errors; Invoke normalizes every outcome
// into either a result or a *Failure so callers never see a panic or an
// unclassified error.
package tools

import (
	"context"
	"errors"
	"fmt"
	"net"

	"kycgate/pkg/platform/sentinel"
)

// Capability names an external capability.
type Capability string

const (
	CapabilityProfileLookup     Capability = "profile_lookup"
	CapabilityProfileSave       Capability = "profile_save"
	CapabilityCaseID            Capability = "case_id"
	CapabilityDocumentAnalysis  Capability = "document_analysis"
	CapabilityWebSearch         Capability = "web_search"
	CapabilityAdverseMedia      Capability = "adverse_media_search"
	CapabilityEmploymentSearch  Capability = "employment_search"
	CapabilitySanctionsScreen   Capability = "sanctions_screen"
	CapabilityWealthCalculation Capability = "wealth_calculation"
)

// FailureCategory is the normalized failure taxonomy.
type FailureCategory string

const (
	FailureTransport      FailureCategory = "transport"
	FailureTimeout        FailureCategory = "timeout"
	FailureBadData        FailureCategory = "bad_data"
	FailureNotFound       FailureCategory = "not_found"
	FailureRateLimited    FailureCategory = "rate_limited"
	FailureAuthentication FailureCategory = "authentication"
	FailureInternal       FailureCategory = "internal"
)

// Failure is a typed tool failure. Reason is safe to hand to a model as
// context; Err keeps the underlying cause for logs.
type Failure struct {
	Capability Capability
	Category   FailureCategory
	Reason     string
	Err        error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("tool %s [%s]: %s: %v", f.Capability, f.Category, f.Reason, f.Err)
	}
	return fmt.Sprintf("tool %s [%s]: %s", f.Capability, f.Category, f.Reason)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Retryable reports whether the failure is transient.
func (f *Failure) Retryable() bool {
	switch f.Category {
	case FailureTransport, FailureTimeout, FailureRateLimited:
		return true
	default:
		return false
	}
}

// NewFailure creates a typed failure.
func NewFailure(capability Capability, category FailureCategory, reason string, err error) *Failure {
	return &Failure{Capability: capability, Category: category, Reason: reason, Err: err}
}

// ClassifyFailure converts any error into a *Failure for capability. An
// existing *Failure in the chain is returned as is.
func ClassifyFailure(capability Capability, err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return NewFailure(capability, FailureTimeout, "operation timed out", err)
	case errors.Is(err, sentinel.ErrNotFound):
		return NewFailure(capability, FailureNotFound, "record not found", err)
	case errors.Is(err, sentinel.ErrUnavailable):
		return NewFailure(capability, FailureTransport, "backend unavailable", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return NewFailure(capability, FailureTimeout, "operation timed out", err)
		}
		return NewFailure(capability, FailureTransport, "backend unreachable", err)
	}
	return NewFailure(capability, FailureInternal, "unexpected tool error", err)
}

// Invoke runs fn and normalizes its outcome. Panics inside fn are recovered
// into an internal failure.
func Invoke[T any](ctx context.Context, capability Capability, fn func(context.Context) (T, error)) (result T, failure *Failure) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result = zero
			failure = NewFailure(capability, FailureInternal, "tool panicked", fmt.Errorf("panic: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		var zero T
		return zero, ClassifyFailure(capability, err)
	}
	res, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, ClassifyFailure(capability, err)
	}
	return res, nil
}

// FailureReport is the serializable form of a failure handed to workers and
// models as tool context.
type FailureReport struct {
	Error    string          `json:"error"`
	Category FailureCategory `json:"category"`
}

// Report converts the failure into its serializable form.
func (f *Failure) Report() FailureReport {
	return FailureReport{Error: f.Reason, Category: f.Category}
}
