// Package handler exposes compliance runs over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/screening"
	"kycgate/internal/screening/metrics"
	"kycgate/internal/screening/models"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

// Service runs a full compliance analysis.
type Service interface {
	Analyze(ctx context.Context, req models.CaseRequest) (*models.Decision, error)
}

// Handler handles the analysis endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
	metrics *metrics.Metrics
}

// New creates a new analysis Handler.
func New(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
		metrics: metrics,
	}
}

// Register registers the analysis routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/analyze", h.HandleAnalyze)
	r.Post("/analyze/quick", h.HandleQuickAnalyze)
}

// HandleAnalyze runs the full workflow for one applicant.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[AnalyzeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	d, err := h.service.Analyze(ctx, req.CaseRequest())
	if err != nil {
		h.logger.ErrorContext(ctx, "kyc analysis failed",
			"request_id", requestID,
			"customer_id", req.CustomerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "kyc analysis completed",
		"request_id", requestID,
		"case_id", d.CaseID,
		"status", d.Disposition,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromDecision(d))
}

// HandleQuickAnalyze scores input completeness only.
func (h *Handler) HandleQuickAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AnalyzeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	q := screening.QuickAssess(req.CaseRequest())
	h.metrics.IncrementQuickAssessment(q.Recommendation)
	h.logger.InfoContext(ctx, "quick assessment completed",
		"request_id", requestID,
		"customer_id", q.CustomerID,
		"risk_score", q.RiskScore,
		"recommendation", q.Recommendation,
	)
	httputil.WriteJSON(w, http.StatusOK, FromQuickAssessment(q))
}
