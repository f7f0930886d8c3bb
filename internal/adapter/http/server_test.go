package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/meteocat-episodes-service/internal/adapter/http"
	"github.com/couchcryptid/meteocat-episodes-service/internal/domain"
	"github.com/couchcryptid/meteocat-episodes-service/internal/selection"
)

// --- mocks ---

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockSelection struct {
	snap        selection.Snapshot
	periods     []string
	dayErr      error
	days        []int
	periodCalls []string
}

func (m *mockSelection) SelectDay(_ context.Context, offset int) error {
	m.days = append(m.days, offset)
	if m.dayErr != nil {
		return m.dayErr
	}
	m.snap.DayOffset = offset
	m.snap.DayLabel = selection.DayLabel(offset)
	return nil
}

func (m *mockSelection) SelectPeriod(name string) bool {
	m.periodCalls = append(m.periodCalls, name)
	for _, p := range m.periods {
		if p == name {
			m.snap.SelectedPeriod = name
			return true
		}
	}
	return false
}

func (m *mockSelection) Snapshot() selection.Snapshot { return m.snap }

type stubCatalog []domain.Region

func (c stubCatalog) Regions() []domain.Region { return append([]domain.Region(nil), c...) }

func (c stubCatalog) Lookup(id int) (domain.Region, bool) {
	for _, r := range c {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Region{}, false
}

var testCatalog = stubCatalog{
	{ID: 1, Name: "Alt Camp", Geometry: json.RawMessage(`{"type":"Point","coordinates":[1.3,41.3]}`)},
	{ID: 13, Name: "Barcelonès", Geometry: json.RawMessage(`{"type":"Point","coordinates":[2.17,41.38]}`)},
}

func newMockSelection() *mockSelection {
	return &mockSelection{
		periods: []string{"12-24h", "24-48h"},
		snap: selection.Snapshot{
			DayLabel:       "today",
			Date:           "2024-10-29",
			Periods:        []string{"12-24h", "24-48h"},
			SelectedPeriod: "12-24h",
			Status:         selection.StatusReady,
			Regions: map[int]domain.Classification{
				13: {Level: 2, ColorIndex: 2, Color: domain.Palette[2], Description: "Danger: 2, Severity: 1", Affectations: 1},
				1:  domain.NoData,
				44: {Level: 0, ColorIndex: 0, Color: domain.Palette[0], Description: "Danger: 0, Severity: 0", Affectations: 1},
			},
		},
	}
}

func newTestServer(readyErr error, sel *mockSelection, opts ...httpadapter.Option) *httpadapter.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpadapter.NewServer(":0", sel, &mockReadiness{err: readyErr}, logger, opts...)
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

type mapResponse struct {
	DayOffset      int      `json:"day_offset"`
	DayLabel       string   `json:"day_label"`
	Date           string   `json:"date"`
	Periods        []string `json:"periods"`
	SelectedPeriod string   `json:"selected_period"`
	Status         string   `json:"status"`
	Error          string   `json:"error"`
	Regions        []struct {
		ID          int    `json:"id"`
		Name        string `json:"name"`
		Level       int    `json:"level"`
		ColorIndex  int    `json:"color_index"`
		Color       string `json:"color"`
		Description string `json:"description"`
	} `json:"regions"`
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) mapResponse {
	t.Helper()
	var body mapResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// --- health ---

func TestHealthzReturns200(t *testing.T) {
	rec := do(t, newTestServer(nil, newMockSelection()), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := do(t, newTestServer(nil, newMockSelection()), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := do(t, newTestServer(fmt.Errorf("not ready yet"), newMockSelection()), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestServer(nil, newMockSelection()), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- episodes API ---

func TestMap_JoinsCatalogueNames(t *testing.T) {
	srv := newTestServer(nil, newMockSelection(), httpadapter.WithCatalog(testCatalog))

	rec := do(t, srv, http.MethodGet, "/api/v1/episodes/map", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeMap(t, rec)
	assert.Equal(t, "2024-10-29", body.Date)
	assert.Equal(t, "12-24h", body.SelectedPeriod)
	assert.Equal(t, "ready", body.Status)
	require.Len(t, body.Regions, 3)

	assert.Equal(t, 1, body.Regions[0].ID)
	assert.Equal(t, "Alt Camp", body.Regions[0].Name)
	assert.Equal(t, -1, body.Regions[0].Level)
	assert.Equal(t, domain.NoDataColor, body.Regions[0].Color)

	assert.Equal(t, 13, body.Regions[1].ID)
	assert.Equal(t, "Barcelonès", body.Regions[1].Name)
	assert.Equal(t, 2, body.Regions[1].ColorIndex)

	assert.Equal(t, 44, body.Regions[2].ID)
	assert.Empty(t, body.Regions[2].Name, "region missing from catalogue is still reported")
}

func TestMap_WithoutCatalogue(t *testing.T) {
	sel := newMockSelection()
	sel.snap = selection.Snapshot{DayLabel: "today", Status: selection.StatusIdle}

	rec := do(t, newTestServer(nil, sel), http.MethodGet, "/api/v1/episodes/map", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeMap(t, rec)
	assert.Equal(t, []string{}, body.Periods)
	assert.Empty(t, body.Regions)
	assert.Empty(t, body.SelectedPeriod)
}

func TestSelectDay(t *testing.T) {
	sel := newMockSelection()
	changes := 0
	srv := newTestServer(nil, sel, httpadapter.WithChangeHook(func() { changes++ }))

	rec := do(t, srv, http.MethodPost, "/api/v1/episodes/day", `{"offset":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []int{1}, sel.days)
	assert.Equal(t, "tomorrow", decodeMap(t, rec).DayLabel)
	assert.Equal(t, 1, changes)
}

func TestSelectDay_InvalidOffset(t *testing.T) {
	sel := newMockSelection()
	sel.dayErr = fmt.Errorf("%w: 5 (max 1)", selection.ErrInvalidDayOffset)
	changes := 0
	srv := newTestServer(nil, sel, httpadapter.WithChangeHook(func() { changes++ }))

	rec := do(t, srv, http.MethodPost, "/api/v1/episodes/day", `{"offset":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid day offset")
	assert.Zero(t, changes)
}

func TestSelectDay_UnexpectedError(t *testing.T) {
	sel := newMockSelection()
	sel.dayErr = errors.New("boom")

	rec := do(t, newTestServer(nil, sel), http.MethodPost, "/api/v1/episodes/day", `{"offset":0}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSelectDay_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"malformed", `{"offset":`},
		{"missing offset", `{}`},
		{"wrong type", `{"offset":"tomorrow"}`},
		{"unknown field", `{"offset":1,"day":"tomorrow"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := newMockSelection()
			rec := do(t, newTestServer(nil, sel), http.MethodPost, "/api/v1/episodes/day", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, sel.days)
		})
	}
}

func TestSelectPeriod(t *testing.T) {
	sel := newMockSelection()
	changes := 0
	srv := newTestServer(nil, sel, httpadapter.WithChangeHook(func() { changes++ }))

	rec := do(t, srv, http.MethodPost, "/api/v1/episodes/period", `{"name":"24-48h"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "24-48h", decodeMap(t, rec).SelectedPeriod)
	assert.Equal(t, 1, changes)
}

func TestSelectPeriod_UnavailableIsIgnored(t *testing.T) {
	sel := newMockSelection()
	changes := 0
	srv := newTestServer(nil, sel, httpadapter.WithChangeHook(func() { changes++ }))

	rec := do(t, srv, http.MethodPost, "/api/v1/episodes/period", `{"name":"48-72h"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12-24h", decodeMap(t, rec).SelectedPeriod)
	assert.Equal(t, []string{"48-72h"}, sel.periodCalls)
	assert.Zero(t, changes)
}

func TestMethodNotAllowed(t *testing.T) {
	rec := do(t, newTestServer(nil, newMockSelection()), http.MethodGet, "/api/v1/episodes/day", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRegions(t *testing.T) {
	srv := newTestServer(nil, newMockSelection(), httpadapter.WithCatalog(testCatalog))

	rec := do(t, srv, http.MethodGet, "/api/v1/regions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var regions []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &regions))
	require.Len(t, regions, 2)
	assert.Equal(t, "Alt Camp", regions[0]["name"])
	assert.NotContains(t, regions[0], "geometry")

	rec = do(t, srv, http.MethodGet, "/api/v1/regions?geometry=true", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &regions))
	assert.Contains(t, regions[0], "geometry")
}

func TestRegions_WithoutCatalogue(t *testing.T) {
	rec := do(t, newTestServer(nil, newMockSelection()), http.MethodGet, "/api/v1/regions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGeoJSON(t *testing.T) {
	srv := newTestServer(nil, newMockSelection(), httpadapter.WithCatalog(testCatalog))

	rec := do(t, srv, http.MethodGet, "/api/v1/episodes/geojson", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Type       string          `json:"type"`
			Geometry   json.RawMessage `json:"geometry"`
			Properties struct {
				ID    int    `json:"id"`
				Name  string `json:"name"`
				Color string `json:"color"`
			} `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))

	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2, "regions outside the catalogue have no geometry")
	assert.Equal(t, "Barcelonès", fc.Features[1].Properties.Name)
	assert.Equal(t, domain.Palette[2], fc.Features[1].Properties.Color)
	assert.JSONEq(t, `{"type":"Point","coordinates":[2.17,41.38]}`, string(fc.Features[1].Geometry))
}

func TestGeoJSON_WithoutCatalogue(t *testing.T) {
	rec := do(t, newTestServer(nil, newMockSelection()), http.MethodGet, "/api/v1/episodes/geojson", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
