// Package api exposes the scoring engine over HTTP. The compute endpoint
// is the "assessment completed" trigger; reads serve results pages and
// report generation.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tallylabs/tally/internal/middleware"
	"github.com/tallylabs/tally/internal/models"
	"github.com/tallylabs/tally/internal/services"
)

type Router struct {
	scores *services.ScoreService
	auth   *services.AuthService
	authn  *middleware.Authenticator
	cors   bool
}

func New(scores *services.ScoreService, auth *services.AuthService, authn *middleware.Authenticator, corsEnabled bool) *Router {
	return &Router{scores: scores, auth: auth, authn: authn, cors: corsEnabled}
}

// Handler wires the chi router.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	if rt.cors {
		r.Use(middleware.CORS)
	}
	r.Use(rt.authn.WithAuth)

	r.Get("/health", rt.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/token", rt.handleIssueToken)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/attempts/{id}/score", rt.handleComputeScore)
			r.Get("/attempts/{id}/score", rt.handleGetScore)
			r.Get("/assessments/{id}/scores.csv", rt.handleExportScores)
		})
	})
	return r
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{"ok": true, "name": "Tally API"})
}

func (rt *Router) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ServiceKey string `json:"service_key"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, services.NewInvalidError("invalid request body"))
		return
	}
	res, err := rt.auth.IssueToken(req.ServiceKey)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{
		"token":      res.Token,
		"expires_in": int(res.ExpiresIn / time.Second),
	})
}

// scoreView is the JSON shape consumed by results pages and the client
// portal.
type scoreView struct {
	ID           string                           `json:"id"`
	AttemptID    string                           `json:"attempt_id"`
	AssessmentID string                           `json:"assessment_id"`
	Points       int                              `json:"points"`
	Possible     int                              `json:"possible"`
	Percentage   *int                             `json:"percentage"`
	TierID       string                           `json:"tier_id,omitempty"`
	Categories   map[string]models.CategoryResult `json:"categories"`
	ComputedAt   string                           `json:"computed_at"`
}

func newScoreView(sc *models.Score) scoreView {
	return scoreView{
		ID:           sc.ID,
		AttemptID:    sc.AttemptID,
		AssessmentID: sc.AssessmentID,
		Points:       sc.Points,
		Possible:     sc.Possible,
		Percentage:   sc.Percentage,
		TierID:       sc.TierID,
		Categories:   sc.Categories,
		ComputedAt:   sc.ComputedAt.Format(time.RFC3339),
	}
}

type tierView struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Color  string `json:"color,omitempty"`
	MinPct int    `json:"min_pct"`
	MaxPct int    `json:"max_pct"`
}

// POST /api/v1/attempts/{id}/score — the completion trigger. Recomputation
// after authoring changes is the same call.
func (rt *Router) handleComputeScore(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "id")
	result, err := rt.scores.ComputeScore(r.Context(), attemptID)
	if err != nil {
		renderError(w, r, err)
		return
	}
	out := map[string]any{
		"score":              newScoreView(result.Score),
		"categories":         result.Categories,
		"overall_percentage": result.OverallPercentage,
	}
	if t := result.OverallTier; t != nil {
		out["overall_tier"] = tierView{ID: t.ID, Label: t.Label, Color: t.Color, MinPct: t.MinPct, MaxPct: t.MaxPct}
	} else {
		out["overall_tier"] = nil
	}
	render.JSON(w, r, out)
}

func (rt *Router) handleGetScore(w http.ResponseWriter, r *http.Request) {
	sc, err := rt.scores.GetScore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, newScoreView(sc))
}

func (rt *Router) handleExportScores(w http.ResponseWriter, r *http.Request) {
	data, err := rt.scores.ExportScores(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=scores.csv")
	_, _ = w.Write(data)
}
