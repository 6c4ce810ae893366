package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/quietmark/quietmark/pkg/types"
	"github.com/quietmark/quietmark/server/internal/alerts"
	"github.com/quietmark/quietmark/server/internal/metrics"
	"github.com/quietmark/quietmark/server/internal/store"
)

// Metric names registered by New.
const (
	MetricAuditsReceived = "quietmark_audits_received_total"
	MetricAuditsRejected = "quietmark_audits_rejected_total"
	MetricAuditsFailed   = "quietmark_audits_failed_total"
)

// Handler serves all /api/v1/* endpoints.
type Handler struct {
	store   *store.Store
	alerts  *alerts.Engine
	metrics *metrics.Registry
}

// New creates the API router. authMW guards the ingest endpoint only —
// read endpoints stay open for dashboards.
func New(st *store.Store, al *alerts.Engine, reg *metrics.Registry,
	authMW func(http.Handler) http.Handler) http.Handler {

	h := &Handler{store: st, alerts: al, metrics: reg}

	reg.RegisterCounter(MetricAuditsReceived, "Audit records accepted by the ingest endpoint.")
	reg.RegisterCounter(MetricAuditsRejected, "Audit records rejected as malformed.")
	reg.RegisterCounter(MetricAuditsFailed, "Accepted records whose trace could not support the metric.")
	reg.RegisterGaugeFunc("quietmark_store_pages", "Pages currently held in the store.",
		func() float64 { return float64(st.Count()) })

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMW)
			r.Post("/audits", h.ingest)
		})

		r.Get("/health", h.health)
		r.Get("/audits", h.listAudits)
		r.Get("/alerts", h.listAlerts)
		r.Get("/snapshot", h.snapshot)
	})

	r.Method(http.MethodGet, "/metrics", reg.Handler())

	return r
}

// --- route handlers ---------------------------------------------------------

// ingest accepts POST /api/v1/audits from agents.
func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	var rec types.AuditRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		h.metrics.Inc(MetricAuditsRejected)
		jsonErr(w, http.StatusBadRequest, "malformed audit record")
		return
	}
	if rec.PageURL == "" || rec.ID == "" {
		h.metrics.Inc(MetricAuditsRejected)
		jsonErr(w, http.StatusBadRequest, "id and page_url are required")
		return
	}
	if rec.Score < -1 || rec.Score > 100 {
		h.metrics.Inc(MetricAuditsRejected)
		jsonErr(w, http.StatusBadRequest, "score out of range")
		return
	}

	h.metrics.Inc(MetricAuditsReceived)
	if rec.Score < 0 {
		h.metrics.Inc(MetricAuditsFailed)
	}

	h.store.Put(rec)
	h.alerts.Evaluate(&rec)

	slog.Debug("api: audit ingested", "page", rec.PageURL, "score", rec.Score)
	jsonResp(w, http.StatusAccepted, ingestResponse{Status: "accepted", ID: rec.ID})
}

// health returns GET /api/v1/health — aggregate interactivity posture.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	entries := h.store.List()
	resp := HealthResponse{
		PageCount:        len(entries),
		ActiveAlertCount: len(h.alerts.Active()),
	}

	var scored int
	var total float64
	for _, e := range entries {
		if e.Record.Score < 0 {
			resp.FailedCount++
			continue
		}
		scored++
		total += float64(e.Record.Score)
		switch e.Record.Rating {
		case types.RatingGood:
			resp.GoodCount++
		case types.RatingNeedsImprovement:
			resp.NeedsImprovementCount++
		default:
			resp.PoorCount++
		}
	}
	if scored > 0 {
		resp.MeanScore = total / float64(scored)
	}

	jsonResp(w, http.StatusOK, resp)
}

// listAudits returns GET /api/v1/audits — all live pages, or one page when
// the "page" query parameter is present.
func (h *Handler) listAudits(w http.ResponseWriter, r *http.Request) {
	if page := r.URL.Query().Get("page"); page != "" {
		e, ok := h.store.Get(page)
		if !ok || time.Since(e.UpdatedAt) > h.store.TTL() {
			jsonErr(w, http.StatusNotFound, "page not found")
			return
		}
		jsonResp(w, http.StatusOK, toPageResponse(e))
		return
	}

	entries := h.store.List()
	out := make([]PageResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toPageResponse(e))
	}
	sortPages(out)
	jsonResp(w, http.StatusOK, out)
}

// listAlerts returns GET /api/v1/alerts — firing alerts plus recent history.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, map[string][]*alerts.Alert{
		"active":  h.alerts.Active(),
		"history": h.alerts.History(),
	})
}

// snapshot returns GET /api/v1/snapshot.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, BuildSnapshot(h.store))
}

// BuildSnapshot assembles the full snapshot payload. Shared with the
// WebSocket hub so both surfaces broadcast identical data.
func BuildSnapshot(st *store.Store) SnapshotResponse {
	entries := st.List()
	pages := make([]PageResponse, 0, len(entries))
	for _, e := range entries {
		pages = append(pages, toPageResponse(e))
	}
	sortPages(pages)
	return SnapshotResponse{
		Pages:       pages,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// --- helpers ----------------------------------------------------------------

func toPageResponse(e *store.Entry) PageResponse {
	return PageResponse{
		AuditRecord: e.Record,
		LastSeen:    e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// sortPages orders by page URL so listings are stable between requests.
func sortPages(pages []PageResponse) {
	sort.Slice(pages, func(i, j int) bool { return pages[i].PageURL < pages[j].PageURL })
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
