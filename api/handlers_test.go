package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarity-bi/clarity/ai"
	"github.com/clarity-bi/clarity/api"
	"github.com/clarity-bi/clarity/dataset"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T, loaded bool) (*httptest.Server, *dataset.Store) {
	t.Helper()
	store := dataset.NewStore()
	if loaded {
		store.Load(testSales(), testClaims())
	}
	handler := api.NewHandler(store, ai.NewClient(ai.Config{}))
	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv, store
}

func testSales() dataset.Table {
	jan := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)
	mk := func(policy, dealer string, gross float64, sold time.Time) dataset.Row {
		return dataset.Row{Cells: map[string]any{
			"Policy No":        policy,
			"Dealer":           dealer,
			"Product":          "Extended Warranty",
			"Make":             "Toyota",
			"Gross Premium":    gross,
			"Risk Premium":     gross * 0.6,
			"Policy Sold Date": sold,
		}}
	}
	return dataset.Table{
		Columns: []string{"Policy No", "Dealer", "Product", "Make", "Gross Premium", "Risk Premium", "Policy Sold Date"},
		Rows: []dataset.Row{
			mk("P-001", "Alpha Motors", 100, jan),
			mk("P-002", "Alpha Motors", 200, jan),
			mk("P-003", "Beta Cars", 300, feb),
		},
	}
}

func testClaims() dataset.Table {
	jan := time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC)
	return dataset.Table{
		Columns: []string{"Policy No", "Claim Status", "Part Type", "Total Auth Amount", "Failure Date"},
		Rows: []dataset.Row{
			{Cells: map[string]any{
				"Policy No":         "P-002",
				"Claim Status":      "Approved",
				"Part Type":         "Gearbox",
				"Total Auth Amount": float64(50),
				"Failure Date":      jan,
			}},
		},
	}
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any, out any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(method, srv.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// =============================================================================
// STATUS / QUERIES
// =============================================================================

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, true)

	var status struct {
		DataLoaded     bool `json:"dataLoaded"`
		SalesRows      int  `json:"salesRows"`
		ClaimsRows     int  `json:"claimsRows"`
		AIAvailable    bool `json:"aiAvailable"`
		PendingChanges int  `json:"pendingChanges"`
	}
	resp := getJSON(t, srv, "/api/status", &status)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, status.DataLoaded)
	assert.Equal(t, 3, status.SalesRows)
	assert.Equal(t, 1, status.ClaimsRows)
	assert.False(t, status.AIAvailable)
	assert.Equal(t, 0, status.PendingChanges)
}

func TestSummaryEndpoint_WithFilterParams(t *testing.T) {
	srv, _ := newTestServer(t, true)

	var summary struct {
		TotalPremium  float64 `json:"totalPremium"`
		TotalPolicies int     `json:"totalPolicies"`
	}
	resp := getJSON(t, srv, "/api/summary?dealer=Alpha+Motors", &summary)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(300), summary.TotalPremium)
	assert.Equal(t, 2, summary.TotalPolicies)
}

func TestSalesMonthlyEndpoint_EmptyStoreServesEmptyArray(t *testing.T) {
	// GIVEN: No data loaded
	// WHEN: Requesting the monthly trend
	// THEN: The response is [] rather than null

	srv, _ := newTestServer(t, false)

	resp, err := http.Get(srv.URL + "/api/sales/monthly")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(bytes.TrimSpace(buf.Bytes())))
}

func TestPredictEndpoint_ShortSeriesReportsErrorPayload(t *testing.T) {
	srv, _ := newTestServer(t, true)

	var out map[string]string
	resp := getJSON(t, srv, "/api/predict", &out)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, out, "error")
}

// =============================================================================
// DATA MANAGEMENT
// =============================================================================

func TestRawDataEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, true)

	var page struct {
		Rows  []map[string]any `json:"rows"`
		Total int              `json:"total"`
		Pages int              `json:"pages"`
	}
	resp := getJSON(t, srv, "/api/data/sales?page=1&limit=2", &page)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Len(t, page.Rows, 2)
}

func TestRawDataEndpoint_UnknownTable(t *testing.T) {
	srv, _ := newTestServer(t, true)

	resp := getJSON(t, srv, "/api/data/inventory", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateCellEndpoint(t *testing.T) {
	srv, store := newTestServer(t, true)

	var out map[string]any
	resp := doJSON(t, srv, http.MethodPut, "/api/data/update", map[string]any{
		"table":     "sales",
		"row_id":    0,
		"column":    "Gross Premium",
		"new_value": 150,
	}, &out)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, float64(100), out["old_value"])
	assert.Equal(t, float64(150), out["new_value"])
	assert.Len(t, store.ChangeLog(), 1)
}

func TestUpdateCellEndpoint_ValidationFailure(t *testing.T) {
	srv, store := newTestServer(t, true)

	resp := doJSON(t, srv, http.MethodPut, "/api/data/update", map[string]any{
		"table":     "sales",
		"row_id":    0,
		"column":    "Gross Premium",
		"new_value": "not a number",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, store.ChangeLog())
}

func TestResetEndpoint(t *testing.T) {
	srv, store := newTestServer(t, true)
	_, err := store.UpdateCell(dataset.TableSales, 0, "Dealer", "Changed")
	require.NoError(t, err)

	resp := doJSON(t, srv, http.MethodPost, "/api/data/reset", struct{}{}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, store.ChangeLog())
	assert.Equal(t, "Alpha Motors", dataset.CellString(store.Sales().Rows[0].Cells["Dealer"]))
}

func TestResetEndpoint_NoData(t *testing.T) {
	srv, _ := newTestServer(t, false)

	resp := doJSON(t, srv, http.MethodPost, "/api/data/reset", struct{}{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChangeLogEndpoint(t *testing.T) {
	srv, store := newTestServer(t, true)
	_, err := store.UpdateCell(dataset.TableSales, 0, "Dealer", "Changed")
	require.NoError(t, err)

	var log []map[string]any
	resp := getJSON(t, srv, "/api/data/changes", &log)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, log, 1)
	assert.Equal(t, "Dealer", log[0]["column"])
}

func TestExportEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, true)

	resp := getJSON(t, srv, "/api/export/sales", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "sales_data.xlsx")
}

func TestExportEndpoint_NoData(t *testing.T) {
	srv, _ := newTestServer(t, false)

	resp := getJSON(t, srv, "/api/export/sales", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// CHAT
// =============================================================================

func TestChatEndpoint_WithoutAIStillSuggestsWidgets(t *testing.T) {
	// GIVEN: No Gemini key configured
	// WHEN: Asking about dealer rankings
	// THEN: The response degrades gracefully and still carries widget hints

	srv, _ := newTestServer(t, true)

	var out struct {
		Response          string `json:"response"`
		AIAvailable       bool   `json:"aiAvailable"`
		WidgetSuggestions []struct {
			Type string `json:"type"`
		} `json:"widgetSuggestions"`
	}
	resp := doJSON(t, srv, http.MethodPost, "/api/chat", map[string]any{
		"message": "show me the top dealers trend",
	}, &out)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, out.AIAvailable)
	assert.NotEmpty(t, out.Response)
	require.NotEmpty(t, out.WidgetSuggestions)

	types := make([]string, 0, len(out.WidgetSuggestions))
	for _, ws := range out.WidgetSuggestions {
		types = append(types, ws.Type)
	}
	assert.Contains(t, types, "table-dealers")
	assert.Contains(t, types, "chart-trend")
}

func TestFiltersEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, true)

	var opts struct {
		Dealers []string `json:"dealers"`
		Years   []int    `json:"years"`
	}
	resp := getJSON(t, srv, "/api/filters", &opts)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Alpha Motors", "Beta Cars"}, opts.Dealers)
	assert.Equal(t, []int{2024}, opts.Years)
}
