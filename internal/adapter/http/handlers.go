package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/couchcryptid/meteocat-episodes-service/internal/domain"
	"github.com/couchcryptid/meteocat-episodes-service/internal/selection"
)

const maxRequestBody = 1 << 10

// regionView is one region of the map response.
type regionView struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
	domain.Classification
}

// mapView is the JSON form of a selection.Snapshot with regions as an
// id-ordered list.
type mapView struct {
	DayOffset      int              `json:"day_offset"`
	DayLabel       string           `json:"day_label"`
	Date           string           `json:"date,omitempty"`
	Periods        []string         `json:"periods"`
	SelectedPeriod string           `json:"selected_period"`
	Status         selection.Status `json:"status"`
	Error          string           `json:"error,omitempty"`
	Generation     uint64           `json:"generation"`
	GeneratedAt    time.Time        `json:"generated_at"`
	Regions        []regionView     `json:"regions"`
}

type dayRequest struct {
	Offset *int `json:"offset"`
}

type periodRequest struct {
	Name string `json:"name"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleMap(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.mapView(s.selection.Snapshot()))
}

func (s *Server) handleSelectDay(w http.ResponseWriter, r *http.Request) {
	var req dayRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if req.Offset == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "offset is required"})
		return
	}

	// A disconnecting client must not cancel the fetch.
	ctx := context.WithoutCancel(r.Context())
	if err := s.selection.SelectDay(ctx, *req.Offset); err != nil {
		if errors.Is(err, selection.ErrInvalidDayOffset) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		s.logger.Error("select day failed", "offset", *req.Offset, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "select day failed"})
		return
	}
	s.changed()
	writeJSON(w, http.StatusOK, s.mapView(s.selection.Snapshot()))
}

func (s *Server) handleSelectPeriod(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if s.selection.SelectPeriod(req.Name) {
		s.changed()
	} else {
		s.logger.Debug("period not available", "period", req.Name)
	}
	writeJSON(w, http.StatusOK, s.mapView(s.selection.Snapshot()))
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeJSON(w, http.StatusOK, []domain.Region{})
		return
	}

	regions := s.catalog.Regions()
	if withGeometry, _ := strconv.ParseBool(r.URL.Query().Get("geometry")); !withGeometry {
		for i := range regions {
			regions[i].Geometry = nil
		}
	}
	writeJSON(w, http.StatusOK, regions)
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties regionView      `json:"properties"`
}

// handleGeoJSON renders the snapshot as a FeatureCollection of catalogue
// regions, ready for map styling by color.
func (s *Server) handleGeoJSON(w http.ResponseWriter, _ *http.Request) {
	if s.catalog == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no region catalogue configured"})
		return
	}

	view := s.mapView(s.selection.Snapshot())
	fc := featureCollection{Type: "FeatureCollection", Features: make([]feature, 0, len(view.Regions))}
	for _, rv := range view.Regions {
		region, ok := s.catalog.Lookup(rv.ID)
		if !ok {
			continue
		}
		geometry := json.RawMessage(region.Geometry)
		if len(geometry) == 0 {
			geometry = json.RawMessage("null")
		}
		fc.Features = append(fc.Features, feature{Type: "Feature", Geometry: geometry, Properties: rv})
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(fc) //nolint:errcheck // best-effort response
}

func (s *Server) mapView(snap selection.Snapshot) mapView {
	view := mapView{
		DayOffset:      snap.DayOffset,
		DayLabel:       snap.DayLabel,
		Date:           snap.Date,
		Periods:        snap.Periods,
		SelectedPeriod: snap.SelectedPeriod,
		Status:         snap.Status,
		Error:          snap.Err,
		Generation:     snap.Generation,
		GeneratedAt:    snap.GeneratedAt,
		Regions:        make([]regionView, 0, len(snap.Regions)),
	}
	if view.Periods == nil {
		view.Periods = []string{}
	}

	for id, c := range snap.Regions {
		rv := regionView{ID: id, Classification: c}
		if s.catalog != nil {
			if region, ok := s.catalog.Lookup(id); ok {
				rv.Name = region.Name
			}
		}
		view.Regions = append(view.Regions, rv)
	}
	slices.SortFunc(view.Regions, func(a, b regionView) int { return a.ID - b.ID })
	return view
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
