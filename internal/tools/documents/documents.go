// Package documents locates and classifies the files attached to a case.
// Each locator is resolved through the fetcher registered for its scheme;
// failures are reported per document.
package documents

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"kycgate/internal/tools"
)

// Document types.
const (
	TypeKTP           = "KTP"
	TypePassport      = "PASSPORT"
	TypeBankStatement = "BANK_STATEMENT"
	TypeTaxID         = "NPWP"
	TypePayslip       = "PAYSLIP"
	TypeID            = "ID"
)

// StatusNeedsVerification marks a located document whose content still has
// to be checked by a reviewer or model.
const StatusNeedsVerification = "NEEDS_VERIFICATION"

const defaultConcurrency = 4

// Locator is a parsed document reference.
type Locator struct {
	Raw    string
	Scheme string
	Bucket string
	Key    string
}

// ParseLocator parses gs://, s3:// and http(s):// references.
func ParseLocator(raw string) (Locator, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Locator{}, fmt.Errorf("parse document locator: %w", err)
	}
	loc := Locator{Raw: raw, Scheme: strings.ToLower(u.Scheme)}
	switch loc.Scheme {
	case "gs", "s3":
		loc.Bucket = u.Host
		loc.Key = strings.TrimPrefix(u.Path, "/")
		if loc.Bucket == "" || loc.Key == "" {
			return Locator{}, fmt.Errorf("document locator %q must name a bucket and object", raw)
		}
	case "http", "https":
		if u.Host == "" {
			return Locator{}, fmt.Errorf("document locator %q has no host", raw)
		}
		loc.Key = u.Path
	default:
		return Locator{}, fmt.Errorf("unsupported document scheme %q", u.Scheme)
	}
	return loc, nil
}

// ObjectInfo is metadata about a stored document.
type ObjectInfo struct {
	ContentType string
	Size        int64
	UpdatedAt   time.Time
}

// Fetcher resolves locators of one scheme.
type Fetcher interface {
	Stat(ctx context.Context, loc Locator) (ObjectInfo, error)
}

// Analyzer resolves and classifies case documents.
type Analyzer struct {
	fetchers    map[string]Fetcher
	concurrency int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithFetcher registers f for the given locator schemes.
func WithFetcher(f Fetcher, schemes ...string) Option {
	return func(a *Analyzer) {
		for _, s := range schemes {
			a.fetchers[strings.ToLower(s)] = f
		}
	}
}

// WithConcurrency bounds parallel lookups.
func WithConcurrency(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{fetchers: make(map[string]Fetcher), concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze resolves every file. Per-document failures are collected in the
// batch; an error is returned only when files were given and none resolved.
func (a *Analyzer) Analyze(ctx context.Context, files []string) (tools.DocumentBatch, error) {
	batch := tools.DocumentBatch{
		Total:     len(files),
		Documents: []tools.DocumentAnalysis{},
	}
	if len(files) == 0 {
		return batch, nil
	}

	type outcome struct {
		doc     *tools.DocumentAnalysis
		failure *tools.Failure
	}
	outcomes := make([]outcome, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, file := range files {
		g.Go(func() error {
			doc, f := a.analyzeOne(gctx, file)
			outcomes[i] = outcome{doc: doc, failure: f}
			return nil
		})
	}
	_ = g.Wait()

	var first *tools.Failure
	for i, o := range outcomes {
		if o.failure != nil {
			if first == nil {
				first = o.failure
			}
			batch.Failures = append(batch.Failures, tools.DocumentFailure{
				Locator:  files[i],
				Category: o.failure.Category,
				Reason:   o.failure.Reason,
			})
			continue
		}
		batch.Documents = append(batch.Documents, *o.doc)
	}
	if len(batch.Documents) == 0 {
		return tools.DocumentBatch{}, first
	}
	return batch, nil
}

func (a *Analyzer) analyzeOne(ctx context.Context, file string) (*tools.DocumentAnalysis, *tools.Failure) {
	capability := tools.CapabilityDocumentAnalysis
	loc, err := ParseLocator(file)
	if err != nil {
		return nil, tools.NewFailure(capability, tools.FailureBadData, err.Error(), err)
	}
	fetcher, ok := a.fetchers[loc.Scheme]
	if !ok {
		return nil, tools.NewFailure(capability, tools.FailureBadData, fmt.Sprintf("no document store configured for %s://", loc.Scheme), nil)
	}

	info, failure := tools.Invoke(ctx, capability, func(ctx context.Context) (ObjectInfo, error) {
		return fetcher.Stat(ctx, loc)
	})
	if failure != nil {
		return nil, failure
	}

	doc := &tools.DocumentAnalysis{
		Locator:      file,
		DocumentType: Classify(loc.Key),
		Status:       StatusNeedsVerification,
		ContentType:  info.ContentType,
		SizeBytes:    info.Size,
	}
	if !info.UpdatedAt.IsZero() {
		updated := info.UpdatedAt.UTC()
		doc.UpdatedAt = &updated
	}
	return doc, nil
}

// Classify infers a document type from its object name.
func Classify(name string) string {
	base := strings.ToLower(path.Base(name))
	switch {
	case strings.Contains(base, "ktp"):
		return TypeKTP
	case strings.Contains(base, "passport"), strings.Contains(base, "paspor"):
		return TypePassport
	case strings.Contains(base, "bank"), strings.Contains(base, "statement"), strings.Contains(base, "rekening"):
		return TypeBankStatement
	case strings.Contains(base, "npwp"):
		return TypeTaxID
	case strings.Contains(base, "payslip"), strings.Contains(base, "slip_gaji"):
		return TypePayslip
	default:
		return TypeID
	}
}
