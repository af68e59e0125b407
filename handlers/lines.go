package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/you/subway-path/models"
	"github.com/you/subway-path/service"
)

// Boundary codes for requests rejected before reaching the service
const (
	CodeMalformedBody = "malformed_body"
	CodeInvalidID     = "invalid_id"
	CodeMissingField  = "missing_field"
)

// LineService defines the line operations the HTTP layer needs
type LineService interface {
	CreateLine(ctx context.Context, name string) (*models.Line, error)
	ListLines(ctx context.Context) ([]*models.Line, error)
	GetLine(ctx context.Context, id int64) (*models.Line, error)
	DeleteLine(ctx context.Context, id int64) error
	AddSegment(ctx context.Context, lineID int64, leftName, rightName string, distance int) (*service.AddSegmentResult, error)
	DeleteStation(ctx context.Context, lineID int64, stationName string) (*models.Line, error)
}

// LineHandler handles HTTP requests for lines and their segments
type LineHandler struct {
	svc LineService
}

// NewLineHandler creates a new handler with the given service
func NewLineHandler(svc LineService) *LineHandler {
	return &LineHandler{svc: svc}
}

// LineResponse is the JSON form of a line
type LineResponse struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Stations      []models.Station `json:"stations"`
	Segments      []models.Segment `json:"segments"`
	TotalDistance int              `json:"totalDistance"`
	Revision      string           `json:"revision,omitempty"`
}

// ListLinesResponse is the JSON response for GET /api/lines
type ListLinesResponse struct {
	Lines []LineResponse `json:"lines"`
	Count int            `json:"count"`
}

// AddSegmentResponse is the JSON response for POST /api/lines/{lineId}/segments.
// Applied is false when the segment touched the line nowhere.
type AddSegmentResponse struct {
	Applied bool         `json:"applied"`
	Line    LineResponse `json:"line"`
}

// CreateLineRequest is the body of POST /api/lines
type CreateLineRequest struct {
	Name string `json:"name"`
}

// AddSegmentRequest is the body of POST /api/lines/{lineId}/segments
type AddSegmentRequest struct {
	LeftStationName  string `json:"leftStationName"`
	RightStationName string `json:"rightStationName"`
	Distance         *int   `json:"distance"`
}

func newLineResponse(line *models.Line) LineResponse {
	return LineResponse{
		ID:            line.ID(),
		Name:          line.Name(),
		Stations:      line.Route(),
		Segments:      line.Segments(),
		TotalDistance: line.TotalDistance(),
		Revision:      line.Revision(),
	}
}

// CreateLine handles POST /api/lines
func (h *LineHandler) CreateLine(w http.ResponseWriter, r *http.Request) {
	var req CreateLineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeBadRequest(w, models.CodeBlankLineName, "name is required")
		return
	}

	line, err := h.svc.CreateLine(r.Context(), req.Name)
	if err != nil {
		writeError(w, err, "Failed to create line")
		return
	}

	w.Header().Set("Location", "/api/lines/"+strconv.FormatInt(line.ID(), 10))
	writeJSON(w, http.StatusCreated, newLineResponse(line))
}

// ListLines handles GET /api/lines
func (h *LineHandler) ListLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.ListLines(r.Context())
	if err != nil {
		writeError(w, err, "Failed to retrieve lines")
		return
	}

	response := ListLinesResponse{Lines: make([]LineResponse, 0, len(lines)), Count: len(lines)}
	for _, line := range lines {
		response.Lines = append(response.Lines, newLineResponse(line))
	}
	writeJSON(w, http.StatusOK, response)
}

// GetLine handles GET /api/lines/{lineId}
// Returns the stations in route order with the segments between them
func (h *LineHandler) GetLine(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "lineId")
	if !ok {
		return
	}

	line, err := h.svc.GetLine(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to retrieve line")
		return
	}
	writeJSON(w, http.StatusOK, newLineResponse(line))
}

// DeleteLine handles DELETE /api/lines/{lineId}
func (h *LineHandler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "lineId")
	if !ok {
		return
	}

	if err := h.svc.DeleteLine(r.Context(), id); err != nil {
		writeError(w, err, "Failed to delete line")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddSegment handles POST /api/lines/{lineId}/segments
func (h *LineHandler) AddSegment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "lineId")
	if !ok {
		return
	}

	var req AddSegmentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.LeftStationName) == "" || strings.TrimSpace(req.RightStationName) == "" {
		writeBadRequest(w, models.CodeBlankStationName, "leftStationName and rightStationName are required")
		return
	}
	if req.Distance == nil {
		writeBadRequest(w, CodeMissingField, "distance is required")
		return
	}
	if *req.Distance <= 0 {
		writeBadRequest(w, models.CodeNonPositiveDistance, "distance must be positive")
		return
	}
	if *req.Distance > models.MaxDistance {
		writeBadRequest(w, models.CodeDistanceTooLong, fmt.Sprintf("distance must be at most %d", models.MaxDistance))
		return
	}

	res, err := h.svc.AddSegment(r.Context(), id, req.LeftStationName, req.RightStationName, *req.Distance)
	if err != nil {
		writeError(w, err, "Failed to add segment")
		return
	}

	status := http.StatusOK
	if res.Applied {
		status = http.StatusCreated
	}
	writeJSON(w, status, AddSegmentResponse{Applied: res.Applied, Line: newLineResponse(res.Line)})
}

// DeleteStation handles DELETE /api/lines/{lineId}/stations/{stationName}
func (h *LineHandler) DeleteStation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "lineId")
	if !ok {
		return
	}

	name, err := stationParam(r)
	if err != nil || strings.TrimSpace(name) == "" {
		writeBadRequest(w, models.CodeBlankStationName, "stationName parameter is required")
		return
	}

	line, err := h.svc.DeleteStation(r.Context(), id, name)
	if err != nil {
		writeError(w, err, "Failed to delete station from line")
		return
	}
	writeJSON(w, http.StatusOK, newLineResponse(line))
}

// stationParam returns the station name from the path. chi matches on the
// decoded path unless the request kept an escaped RawPath, so the value
// is only unescaped in that case.
func stationParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "stationName")
	if r.URL.RawPath == "" {
		return raw, nil
	}
	return url.PathUnescape(raw)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "Malformed request body",
			Code:  CodeMalformedBody,
			Details: map[string]interface{}{
				"internal": err.Error(),
			},
		})
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: param + " must be a positive integer",
			Code:  CodeInvalidID,
			Details: map[string]interface{}{
				param: raw,
			},
		})
		return 0, false
	}
	return id, true
}
