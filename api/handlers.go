/*
handlers.go - HTTP handlers for the analytics engine

PURPOSE:
  Exposes the dataset store and metrics engine via REST. Handles HTTP
  request/response and JSON serialization, and delegates everything else to
  the engine packages.

CONCURRENCY:
  The engine itself carries no locks; it expects its host to serialize
  requests against the single shared store. That is the handler mutex: every
  handler holds it for the duration of the call, so no query ever observes a
  half-applied mutation or a stale Merged View.

ERROR HANDLING:
  Engine failures are value-returned and mapped here:
  - 400: validation errors, invalid columns, no data loaded, bad uploads
  - 404: unknown table or row
  - 500: internal errors

SEE ALSO:
  - dto.go: request/response types
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/clarity-bi/clarity/ai"
	"github.com/clarity-bi/clarity/dataset"
	"github.com/clarity-bi/clarity/metrics"
	"github.com/clarity-bi/clarity/xlsx"
)

// maxUploadBytes caps workbook uploads.
const maxUploadBytes = 64 << 20

// Handler holds all dependencies for HTTP handlers and serializes access to
// the shared store.
type Handler struct {
	mu     sync.Mutex
	store  *dataset.Store
	engine *metrics.Engine
	ai     *ai.Client
}

// NewHandler creates a handler around one store instance.
func NewHandler(store *dataset.Store, aiClient *ai.Client) *Handler {
	return &Handler{
		store:  store,
		engine: metrics.NewEngine(store),
		ai:     aiClient,
	}
}

// =============================================================================
// UPLOAD / STATUS
// =============================================================================

// Upload processes a workbook and replaces the loaded tables wholesale.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file upload", err)
		return
	}
	defer file.Close()

	sales, claims, err := xlsx.Read(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to process workbook", err)
		return
	}

	h.mu.Lock()
	h.store.Load(sales, claims)
	resp := UploadResponse{
		Success:       true,
		FileName:      header.Filename,
		SalesRows:     h.store.Sales().Len(),
		ClaimsRows:    h.store.Claims().Len(),
		FilterOptions: h.store.GetFilterOptions(),
	}
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// Status reports whether data is loaded and the assistant is configured.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	resp := StatusResponse{
		DataLoaded:     h.store.Loaded(),
		SalesRows:      h.store.Sales().Len(),
		ClaimsRows:     h.store.Claims().Len(),
		AIAvailable:    h.ai.Available(),
		PendingChanges: len(h.store.ChangeLog()),
	}
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// QUERY ENDPOINTS
// =============================================================================

func (h *Handler) FilterOptions(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	opts := h.store.GetFilterOptions()
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, opts)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, func(f dataset.Filter) any { return h.engine.GetSummary(f) })
}

func (h *Handler) SalesMonthly(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, func(f dataset.Filter) any { return orEmpty(h.engine.GetSalesMonthly(f)) })
}

func (h *Handler) SalesDealers(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, func(f dataset.Filter) any { return orEmpty(h.engine.GetSalesDealers(f)) })
}

func (h *Handler) SalesProducts(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, func(f dataset.Filter) any { return orEmpty(h.engine.GetSalesProducts(f)) })
}

func (h *Handler) SalesVehicles(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, func(f dataset.Filter) any { return orEmpty(h.engine.GetSalesVehicles(f)) })
}

func (h *Handler) ClaimsStatus(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, func(f dataset.Filter) any { return orEmpty(h.engine.GetClaimsStatus(f)) })
}

func (h *Handler) ClaimsParts(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, func(f dataset.Filter) any { return orEmpty(h.engine.GetClaimsParts(f)) })
}

func (h *Handler) ClaimsTrends(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, func(f dataset.Filter) any { return orEmpty(h.engine.GetClaimsTrends(f)) })
}

func (h *Handler) ClaimsRecent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	h.query(w, r, func(f dataset.Filter) any { return orEmpty(h.engine.GetClaimsRecent(f, limit)) })
}

func (h *Handler) Correlations(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, func(f dataset.Filter) any { return h.engine.GetCorrelations(f) })
}

func (h *Handler) Budget(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, func(f dataset.Filter) any { return h.engine.GetBudget(f) })
}

func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, func(f dataset.Filter) any { return orEmpty(h.engine.GetInsights(f)) })
}

// Predict runs the loss-ratio forecaster.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	f := parseFilter(r)
	h.mu.Lock()
	forecast, err := h.engine.PredictLossRatio(f)
	h.mu.Unlock()
	if err != nil {
		// Short series is an expected answer shape, not a failure.
		writeJSON(w, http.StatusOK, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, forecast)
}

// query runs one cached aggregation under the host lock.
func (h *Handler) query(w http.ResponseWriter, r *http.Request, fn func(dataset.Filter) any) {
	f := parseFilter(r)
	h.mu.Lock()
	result := fn(f)
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, result)
}

// orEmpty keeps empty aggregations serializing as [] instead of null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// =============================================================================
// DATA MANAGEMENT
// =============================================================================

func (h *Handler) RawData(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	h.mu.Lock()
	pageData, err := h.store.GetRawData(table, page, limit, parseFilter(r), q.Get("sort_by"), q.Get("sort_dir"))
	h.mu.Unlock()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageData)
}

func (h *Handler) UpdateCell(w http.ResponseWriter, r *http.Request) {
	var req CellUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.mu.Lock()
	result, err := h.store.UpdateCell(req.Table, req.RowID, req.Column, req.NewValue)
	h.mu.Unlock()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"old_value": result.OldValue,
		"new_value": result.NewValue,
	})
}

func (h *Handler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req BulkUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.mu.Lock()
	result := h.store.BulkUpdate(req.Table, req.Updates)
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	err := h.store.Reset()
	h.mu.Unlock()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) ChangeLog(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	log := h.store.ChangeLog()
	h.mu.Unlock()
	if log == nil {
		log = []dataset.ChangeEntry{}
	}
	writeJSON(w, http.StatusOK, log)
}

// Export streams the current working copy of a table as a workbook.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	h.mu.Lock()
	t, err := h.store.Table(table)
	if err == nil && !h.store.Loaded() {
		err = dataset.ErrNoDataLoaded
	}
	h.mu.Unlock()
	if err != nil {
		writeEngineError(w, err)
		return
	}

	data, err := xlsx.Export(t)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Export failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_data.xlsx", table))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// =============================================================================
// CHAT
// =============================================================================

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var f dataset.Filter
	if req.Filters != nil {
		f = req.Filters.ToFilter()
	}

	h.mu.Lock()
	dataContext := ai.RenderDataContext(h.engine, f)
	h.mu.Unlock()

	resp := ChatResponse{
		AIAvailable:       h.ai.Available(),
		WidgetSuggestions: widgetSuggestions(req.Message),
	}
	if h.ai.Available() {
		text, err := h.ai.Chat(req.Message, dataContext, req.History)
		if err != nil {
			writeError(w, http.StatusBadGateway, "Assistant unavailable", err)
			return
		}
		resp.Response = text
		resp.Suggestions = h.ai.Suggestions(dataContext)
	} else {
		resp.Response = "AI assistant is not configured. Set the Gemini API key to enable chat."
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ChatSuggestions(w http.ResponseWriter, r *http.Request) {
	if !h.ai.Available() {
		writeJSON(w, http.StatusOK, map[string][]string{"suggestions": {}})
		return
	}
	h.mu.Lock()
	dataContext := ai.RenderDataContext(h.engine, dataset.Filter{})
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string][]string{"suggestions": h.ai.Suggestions(dataContext)})
}

// widgetSuggestions maps question keywords to dashboard widgets.
func widgetSuggestions(message string) []WidgetSuggestion {
	msg := strings.ToLower(message)
	var out []WidgetSuggestion

	add := func(keywords []string, typ, title string) {
		for _, k := range keywords {
			if strings.Contains(msg, k) {
				out = append(out, WidgetSuggestion{Type: typ, Title: title})
				return
			}
		}
	}

	add([]string{"trend", "over time", "monthly", "year", "history"}, "chart-trend", "Premium vs Claims Trend")
	add([]string{"product", "type", "category", "plan", "line"}, "chart-products", "Product Distribution")
	add([]string{"claim", "segment", "breakdown", "pie", "split"}, "chart-pie", "Claims by Type")
	add([]string{"dealer", "agent", "partner", "top", "ranking"}, "table-dealers", "Dealer Performance")
	add([]string{"premium", "revenue", "total", "kpi", "summary"}, "kpi-premium", "Total Premium KPI")
	add([]string{"loss ratio", "risk", "loss rate"}, "kpi-loss", "Loss Ratio KPI")

	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	detail := msg
	if err != nil {
		detail = fmt.Sprintf("%s: %v", msg, err)
	}
	writeJSON(w, status, map[string]any{"success": false, "error": detail})
}

// writeEngineError maps engine error values to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case dataset.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, dataset.ErrNoDataLoaded), dataset.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Request rejected", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
