package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/you/subway-path/models"
)

// StationService defines the station operations the HTTP layer needs
type StationService interface {
	CreateStation(ctx context.Context, name string) (models.Station, error)
	ListStations(ctx context.Context) ([]models.Station, error)
	GetStation(ctx context.Context, id int64) (models.Station, error)
}

// StationHandler handles HTTP requests for stations
type StationHandler struct {
	svc StationService
}

// NewStationHandler creates a new station handler
func NewStationHandler(svc StationService) *StationHandler {
	return &StationHandler{svc: svc}
}

// CreateStationRequest is the body of POST /api/stations
type CreateStationRequest struct {
	Name string `json:"name"`
}

// ListStationsResponse is the JSON response for GET /api/stations
type ListStationsResponse struct {
	Stations []models.Station `json:"stations"`
	Count    int              `json:"count"`
}

// CreateStation handles POST /api/stations
func (h *StationHandler) CreateStation(w http.ResponseWriter, r *http.Request) {
	var req CreateStationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeBadRequest(w, models.CodeBlankStationName, "name is required")
		return
	}

	station, err := h.svc.CreateStation(r.Context(), req.Name)
	if err != nil {
		writeError(w, err, "Failed to create station")
		return
	}

	w.Header().Set("Location", "/api/stations/"+strconv.FormatInt(station.ID, 10))
	writeJSON(w, http.StatusCreated, station)
}

// ListStations handles GET /api/stations
func (h *StationHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.svc.ListStations(r.Context())
	if err != nil {
		writeError(w, err, "Failed to retrieve stations")
		return
	}
	if stations == nil {
		stations = []models.Station{}
	}
	writeJSON(w, http.StatusOK, ListStationsResponse{Stations: stations, Count: len(stations)})
}

// GetStation handles GET /api/stations/{stationId}
func (h *StationHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "stationId")
	if !ok {
		return
	}

	station, err := h.svc.GetStation(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to retrieve station")
		return
	}
	writeJSON(w, http.StatusOK, station)
}
