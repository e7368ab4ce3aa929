package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/screening/ports"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

const (
	serviceName        = "kycgate"
	serviceTitle       = "KYC Compliance Gateway"
	serviceDescription = "Multi-agent KYC verification with human-in-the-loop risk decisions"
	coordinatorName    = "KYC_Manager"
)

// Directory lists the configured workers.
type Directory interface {
	Agents() []ports.Agent
}

// StatusHandler serves health and service information.
type StatusHandler struct {
	directory Directory
	version   string
}

func NewStatusHandler(directory Directory, version string) *StatusHandler {
	return &StatusHandler{directory: directory, version: version}
}

func (h *StatusHandler) Register(r chi.Router) {
	r.Get("/", h.HandleHealth)
	r.Get("/info", h.HandleInfo)
}

func (h *StatusHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	names := []string{coordinatorName}
	for _, a := range h.directory.Agents() {
		names = append(names, string(a.Role()))
	}
	httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:          "ok",
		Service:         serviceName,
		Version:         h.version,
		Timestamp:       timestamp(requestcontext.Now(r.Context())),
		AgentsAvailable: names,
	})
}

func (h *StatusHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	agents := []AgentResponse{{
		Name:        coordinatorName,
		Description: "Runs pre-checks, fans out to workers and aggregates their verdicts",
		Tools:       []string{"profile_lookup", "case_id", "sanctions_screen"},
	}}
	for _, a := range h.directory.Agents() {
		resp := AgentResponse{Name: string(a.Role()), Tools: []string{}}
		if info, ok := a.(ports.AgentInfo); ok {
			resp.Model = info.Model()
			resp.Description = info.Description()
			resp.Tools = info.Tools()
		}
		agents = append(agents, resp)
	}

	httputil.WriteJSON(w, http.StatusOK, InfoResponse{
		Service:     serviceTitle,
		Version:     h.version,
		Description: serviceDescription,
		Agents:      agents,
		Endpoints: map[string]string{
			"/":              "Health check",
			"/info":          "Service information",
			"/analyze":       "Run KYC analysis (POST)",
			"/analyze/quick": "Quick risk assessment (POST)",
			"/metrics":       "Prometheus metrics",
		},
	})
}
