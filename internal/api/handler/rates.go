package handler

import (
	"net/http"

	"github.com/pasacoin/pasanaku-server/internal/rates"
)

// RatesHandler serves the display-only exchange rate feed.
type RatesHandler struct {
	feed rates.Feed
}

// NewRatesHandler creates a new RatesHandler.
func NewRatesHandler(feed rates.Feed) *RatesHandler {
	return &RatesHandler{feed: feed}
}

// RatesResponse carries the current rate and recent observations.
type RatesResponse struct {
	Current rates.Rate   `json:"current"`
	History []rates.Rate `json:"history"`
}

// Get returns the current rate and its recent history.
func (h *RatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	current, err := h.feed.Current(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "rate feed unavailable")
		return
	}
	respondJSON(w, http.StatusOK, &RatesResponse{
		Current: current,
		History: h.feed.History(),
	})
}
