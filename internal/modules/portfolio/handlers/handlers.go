// Package handlers provides the HTTP handlers for the position ledger.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/minqi/alphahunter/internal/domain"
	"github.com/minqi/alphahunter/internal/modules/portfolio"
)

// Handler handles position ledger HTTP requests.
type Handler struct {
	positions *portfolio.PositionRepository
	log       zerolog.Logger
}

// NewHandler creates a new position handler.
func NewHandler(positions *portfolio.PositionRepository, log zerolog.Logger) *Handler {
	return &Handler{
		positions: positions,
		log:       log.With().Str("handler", "positions").Logger(),
	}
}

// createPositionRequest is the body for POST /positions.
type createPositionRequest struct {
	Ticker   string  `json:"ticker"`
	BuyPrice float64 `json:"buy_price"`
	Shares   int64   `json:"shares"`
}

// HandleListPositions returns positions, newest first. With ?status=open
// only the open ones are returned, in creation order.
func (h *Handler) HandleListPositions(w http.ResponseWriter, r *http.Request) {
	var (
		positions []domain.Position
		err       error
	)

	switch status := r.URL.Query().Get("status"); status {
	case "open":
		positions, err = h.positions.ListOpen()
	case "", "all":
		positions, err = h.positions.ListAll()
	default:
		h.writeError(w, http.StatusBadRequest, "unknown status filter: "+status)
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if positions == nil {
		positions = []domain.Position{}
	}
	h.writeJSON(w, http.StatusOK, positions)
}

// HandleCreatePosition records a new open position.
func (h *Handler) HandleCreatePosition(w http.ResponseWriter, r *http.Request) {
	var req createPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Ticker == "" {
		h.writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	if req.BuyPrice <= 0 {
		h.writeError(w, http.StatusBadRequest, "buy_price must be positive")
		return
	}
	if req.Shares <= 0 {
		h.writeError(w, http.StatusBadRequest, "shares must be positive")
		return
	}

	position, err := h.positions.Create(req.Ticker, req.BuyPrice, req.Shares)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, position)
}

// HandleClosePosition closes an open position by id.
func (h *Handler) HandleClosePosition(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid position id")
		return
	}

	position, err := h.positions.GetByID(id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if position == nil {
		h.writeError(w, http.StatusNotFound, "position not found")
		return
	}
	if position.Status != domain.PositionOpen {
		h.writeError(w, http.StatusConflict, "position is already closed")
		return
	}

	if err := h.positions.Close(id); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	closed, err := h.positions.GetByID(id)
	if err != nil || closed == nil {
		// The close committed; report it even if the re-read failed.
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to re-read closed position")
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": domain.PositionClosed})
		return
	}

	h.writeJSON(w, http.StatusOK, closed)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
