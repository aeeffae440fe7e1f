/*
dto.go - Request/response types for the analytics API

PURPOSE:
  JSON structures for API communication, decoupling the internal model from
  the external contract. Aggregation results serialize themselves (the
  metrics types carry JSON tags); this file holds the request bodies and the
  envelope types the frontend expects.
*/
package api

import (
	"net/http"

	"github.com/clarity-bi/clarity/ai"
	"github.com/clarity-bi/clarity/dataset"
)

// FilterDTO mirrors the query-string filter vocabulary in request bodies.
type FilterDTO struct {
	Dealer      string `json:"dealer,omitempty"`
	Product     string `json:"product,omitempty"`
	Year        string `json:"year,omitempty"`
	Month       string `json:"month,omitempty"`
	Make        string `json:"make,omitempty"`
	ClaimStatus string `json:"claim_status,omitempty"`
	DateFrom    string `json:"date_from,omitempty"`
	DateTo      string `json:"date_to,omitempty"`
	Search      string `json:"search,omitempty"`
}

// ToFilter converts the DTO to the engine's filter specification.
func (d FilterDTO) ToFilter() dataset.Filter {
	return dataset.Filter{
		Dealer:      d.Dealer,
		Product:     d.Product,
		Year:        d.Year,
		Month:       d.Month,
		Make:        d.Make,
		ClaimStatus: d.ClaimStatus,
		DateFrom:    d.DateFrom,
		DateTo:      d.DateTo,
		Search:      d.Search,
	}
}

// parseFilter reads the common filter specification from query parameters.
func parseFilter(r *http.Request) dataset.Filter {
	q := r.URL.Query()
	return dataset.Filter{
		Dealer:      q.Get("dealer"),
		Product:     q.Get("product"),
		Year:        q.Get("year"),
		Month:       q.Get("month"),
		Make:        q.Get("make"),
		ClaimStatus: q.Get("claim_status"),
		DateFrom:    q.Get("date_from"),
		DateTo:      q.Get("date_to"),
		Search:      q.Get("search"),
	}
}

// CellUpdateRequest edits one cell.
type CellUpdateRequest struct {
	Table    string `json:"table"`
	RowID    int    `json:"row_id"`
	Column   string `json:"column"`
	NewValue any    `json:"new_value"`
}

// BulkUpdateRequest applies a sequence of edits to one table.
type BulkUpdateRequest struct {
	Table   string               `json:"table"`
	Updates []dataset.CellUpdate `json:"updates"`
}

// ChatRequest is a chat turn from the frontend.
type ChatRequest struct {
	Message string       `json:"message"`
	History []ai.Message `json:"history,omitempty"`
	Filters *FilterDTO   `json:"filters,omitempty"`
}

// ChatResponse is the assistant's reply plus UI hints.
type ChatResponse struct {
	Response          string             `json:"response"`
	Suggestions       []string           `json:"suggestions,omitempty"`
	WidgetSuggestions []WidgetSuggestion `json:"widgetSuggestions,omitempty"`
	AIAvailable       bool               `json:"aiAvailable"`
}

// WidgetSuggestion points the frontend at a dashboard widget matching the
// user's question.
type WidgetSuggestion struct {
	Type  string `json:"type"`
	Title string `json:"title"`
}

// StatusResponse reports store and assistant state.
type StatusResponse struct {
	DataLoaded     bool `json:"dataLoaded"`
	SalesRows      int  `json:"salesRows"`
	ClaimsRows     int  `json:"claimsRows"`
	AIAvailable    bool `json:"aiAvailable"`
	PendingChanges int  `json:"pendingChanges"`
}

// UploadResponse confirms a processed workbook.
type UploadResponse struct {
	Success       bool                  `json:"success"`
	FileName      string                `json:"fileName"`
	SalesRows     int                   `json:"salesRows"`
	ClaimsRows    int                   `json:"claimsRows"`
	FilterOptions dataset.FilterOptions `json:"filterOptions"`
}
