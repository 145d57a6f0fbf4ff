package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"lakehouse_voc/internal/app"
	"lakehouse_voc/internal/domain"
)

type Handlers struct {
	Q *app.DiagnosticsService
	A domain.Assistant // nil when no collaborator endpoint is configured
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Get("/v1/properties", h.listProperties)
	s.mux.Get("/v1/properties/flagged", h.listFlagged)
	s.mux.Get("/v1/properties/flagged/grouped", h.listFlaggedGrouped)
	s.mux.Get("/v1/properties/regions", h.listRegions)
	s.mux.Get("/v1/properties/healthy", h.listHealthy)
	s.mux.Get("/v1/kpis", h.getKPIs)
	s.mux.Get("/v1/trends", h.getTrends)
	s.mux.Get("/v1/regions/summary", h.getRegionalSummary)

	s.mux.Get("/v1/properties/{id}/aspects", h.listAspects)
	s.mux.Get("/v1/properties/{id}/aspects/{aspect}", h.getAspectDetail)
	s.mux.Get("/v1/properties/{id}/aspects/{aspect}/reviews", h.listAspectReviews)
	s.mux.Get("/v1/properties/{id}/email", h.getEmailDraft)
	s.mux.Get("/v1/properties/{id}/recommendations", h.getRecommendations)

	s.mux.Post("/v1/assistant/ask", h.askAssistant)
}

// windowFrom reads the requested window. The dashboard sends days=N;
// window= is accepted as an alias.
func windowFrom(r *http.Request, sc domain.Scope) (domain.Window, error) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		raw = r.URL.Query().Get("window")
	}
	return domain.ParseWindow(raw, defaultWindow(sc))
}

// Headquarters reviews a two-week board; managers get a month of their own
// property.
func defaultWindow(sc domain.Scope) domain.Window {
	if sc.Role == domain.RolePropertyManager {
		return domain.TrailingDays(30)
	}
	return domain.TrailingDays(14)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// respondJSON writes v with an ETag so clients can revalidate with
// If-None-Match instead of re-downloading dashboard boards.
func respondJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "response encoding failed")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

// ---- portfolio boards ----

func (h *Handlers) listProperties(w http.ResponseWriter, r *http.Request) {
	sc := ScopeFrom(r.Context())
	win, err := windowFrom(r, sc)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Window", err.Error())
		return
	}
	out, err := h.Q.ListAllProperties(r.Context(), sc, win)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "property directory unavailable")
		return
	}
	respondJSON(w, r, out)
}

func (h *Handlers) listFlagged(w http.ResponseWriter, r *http.Request) {
	sc := ScopeFrom(r.Context())
	win, err := windowFrom(r, sc)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Window", err.Error())
		return
	}
	out, err := h.Q.FlaggedProperties(r.Context(), sc, win)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "flagged board unavailable")
		return
	}
	respondJSON(w, r, out)
}

func (h *Handlers) listFlaggedGrouped(w http.ResponseWriter, r *http.Request) {
	sc := ScopeFrom(r.Context())
	win, err := windowFrom(r, sc)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Window", err.Error())
		return
	}
	out, err := h.Q.FlaggedPropertiesGrouped(r.Context(), sc, win)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "flagged board unavailable")
		return
	}
	respondJSON(w, r, out)
}

func (h *Handlers) listRegions(w http.ResponseWriter, r *http.Request) {
	sc := ScopeFrom(r.Context())
	win, err := windowFrom(r, sc)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Window", err.Error())
		return
	}
	out, err := h.Q.PropertiesByRegionAndSeverity(r.Context(), sc, win)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "region board unavailable")
		return
	}
	respondJSON(w, r, out)
}

func (h *Handlers) listHealthy(w http.ResponseWriter, r *http.Request) {
	sc := ScopeFrom(r.Context())
	win, err := windowFrom(r, sc)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Window", err.Error())
		return
	}
	out, err := h.Q.HealthyPropertiesGrouped(r.Context(), sc, win)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "health split unavailable")
		return
	}
	respondJSON(w, r, out)
}

func (h *Handlers) getKPIs(w http.ResponseWriter, r *http.Request) {
	sc := ScopeFrom(r.Context())
	win, err := windowFrom(r, sc)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Window", err.Error())
		return
	}
	out, err := h.Q.DiagnosticsKPIs(r.Context(), sc, win)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "kpis unavailable")
		return
	}
	respondJSON(w, r, out)
}

func (h *Handlers) getTrends(w http.ResponseWriter, r *http.Request) {
	sc := ScopeFrom(r.Context())
	win, err := windowFrom(r, sc)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Window", err.Error())
		return
	}
	out, err := h.Q.TrendData(r.Context(), sc, win)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "trend series unavailable")
		return
	}
	respondJSON(w, r, out)
}

func (h *Handlers) getRegionalSummary(w http.ResponseWriter, r *http.Request) {
	sc := ScopeFrom(r.Context())
	out, err := h.Q.RegionalSummary(r.Context(), sc)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "regional summary unavailable")
		return
	}
	respondJSON(w, r, out)
}

// ---- per-property deep dive ----

func (h *Handlers) listAspects(w http.ResponseWriter, r *http.Request) {
	sc := ScopeFrom(r.Context())
	out, err := h.Q.ReviewAspects(r.Context(), sc, chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "aspect list unavailable")
		return
	}
	respondJSON(w, r, out)
}

func (h *Handlers) getAspectDetail(w http.ResponseWriter, r *http.Request) {
	sc := ScopeFrom(r.Context())
	dd, err := h.Q.AspectDetail(r.Context(), sc, chi.URLParam(r, "id"), chi.URLParam(r, "aspect"))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "aspect detail unavailable")
		return
	}
	if dd == nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "no open issue for this property and aspect")
		return
	}
	respondJSON(w, r, dd)
}

func (h *Handlers) listAspectReviews(w http.ResponseWriter, r *http.Request) {
	sc := ScopeFrom(r.Context())
	win, err := windowFrom(r, sc)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Window", err.Error())
		return
	}
	out, err := h.Q.ReviewsForAspect(r.Context(), sc, chi.URLParam(r, "id"), chi.URLParam(r, "aspect"), win)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "review buckets unavailable")
		return
	}
	respondJSON(w, r, out)
}

func (h *Handlers) getEmailDraft(w http.ResponseWriter, r *http.Request) {
	sc := ScopeFrom(r.Context())
	win, err := windowFrom(r, sc)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Window", err.Error())
		return
	}
	draft, err := h.Q.DraftEmail(r.Context(), sc, chi.URLParam(r, "id"), win)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "email draft unavailable")
		return
	}
	if draft == nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown property")
		return
	}
	respondJSON(w, r, draft)
}

func (h *Handlers) getRecommendations(w http.ResponseWriter, r *http.Request) {
	sc := ScopeFrom(r.Context())
	win, err := windowFrom(r, sc)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Window", err.Error())
		return
	}
	recs, err := h.Q.Recommendations(r.Context(), sc, chi.URLParam(r, "id"), win)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "recommendations unavailable")
		return
	}
	if recs == nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown property")
		return
	}
	respondJSON(w, r, recs)
}

// ---- assistant passthrough ----

type askPayload struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
}

func (h *Handlers) askAssistant(w http.ResponseWriter, r *http.Request) {
	if h.A == nil {
		writeProblem(w, http.StatusServiceUnavailable, "Assistant Disabled", "no collaborator endpoint configured")
		return
	}

	var p askPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&p); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "expected JSON with a question field")
		return
	}
	p.Question = strings.TrimSpace(p.Question)
	if p.Question == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "question must not be empty")
		return
	}

	sc := ScopeFrom(r.Context())
	var (
		ans domain.AssistantAnswer
		err error
	)
	if p.ConversationID == "" {
		ans, err = h.A.Start(r.Context(), sc, p.Question)
	} else {
		ans, err = h.A.Continue(r.Context(), sc, p.ConversationID, p.Question)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "conversation not found")
			return
		}
		log.Error().Err(err).Msg("assistant call failed")
		writeProblem(w, http.StatusBadGateway, "Assistant Unavailable", "the collaborator did not answer")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(ans); err != nil {
		log.Error().Err(err).Msg("failed to write assistant answer")
	}
}
