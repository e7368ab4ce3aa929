package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/screening/models"
	"kycgate/internal/screening/ports"
	"kycgate/pkg/testutil"
)

type describedAgent struct {
	role  models.Role
	model string
}

func (a describedAgent) Role() models.Role { return a.role }
func (a describedAgent) Run(context.Context, models.CaseRequest) models.Verdict {
	return models.Verdict{}
}
func (a describedAgent) Model() string       { return a.model }
func (a describedAgent) Description() string { return "checks " + string(a.role) }
func (a describedAgent) Tools() []string     { return []string{"document_analysis"} }

type bareAgent struct{ role models.Role }

func (a bareAgent) Role() models.Role { return a.role }
func (a bareAgent) Run(context.Context, models.CaseRequest) models.Verdict {
	return models.Verdict{}
}

type directory []ports.Agent

func (d directory) Agents() []ports.Agent { return d }

func newStatusRouter() chi.Router {
	r := chi.NewRouter()
	NewStatusHandler(directory{
		describedAgent{role: models.RoleDocumentChecker, model: "gemini-1.5-pro-002"},
		bareAgent{role: models.RoleSanctionsScreener},
	}, "1.2.3").Register(r)
	return r
}

func TestHealth(t *testing.T) {
	req := testutil.NewRequest(t, http.MethodGet, "/")
	req = testutil.WithTime(req, time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))

	rec := testutil.DoRequest(newStatusRouter(), req)

	testutil.AssertStatus(t, rec, http.StatusOK)
	body := testutil.UnmarshalResponse[HealthResponse](t, rec)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "1.2.3", body.Version)
	assert.Equal(t, "2026-03-14T09:00:00Z", body.Timestamp)
	assert.Equal(t, []string{"KYC_Manager", "Document_Checker", "Sanctions_Screener"}, body.AgentsAvailable)
}

func TestInfo(t *testing.T) {
	rec := testutil.DoRequest(newStatusRouter(), testutil.NewRequest(t, http.MethodGet, "/info"))

	testutil.AssertStatus(t, rec, http.StatusOK)
	body := testutil.UnmarshalResponse[InfoResponse](t, rec)
	require.Len(t, body.Agents, 3)
	assert.Equal(t, "KYC_Manager", body.Agents[0].Name)
	assert.Equal(t, "gemini-1.5-pro-002", body.Agents[1].Model)
	assert.Equal(t, []string{"document_analysis"}, body.Agents[1].Tools)
	assert.Equal(t, "Sanctions_Screener", body.Agents[2].Name)
	assert.Empty(t, body.Agents[2].Model)
	assert.Contains(t, body.Endpoints, "/analyze/quick")
}
