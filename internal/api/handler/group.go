package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/pasacoin/pasanaku-server/internal/api/middleware"
	"github.com/pasacoin/pasanaku-server/internal/domain"
	"github.com/pasacoin/pasanaku-server/internal/service"
	"github.com/pasacoin/pasanaku-server/internal/validation"
)

// GroupHandler handles group lifecycle endpoints.
type GroupHandler struct {
	engine *service.Engine
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(engine *service.Engine) *GroupHandler {
	return &GroupHandler{engine: engine}
}

// CreateGroupRequest is the body for POST /groups. ContributionAmount is a
// decimal string to avoid float rounding on the wire.
type CreateGroupRequest struct {
	Name               string            `json:"name"`
	ContributionAmount string            `json:"contributionAmount"`
	Capacity           int               `json:"capacity"`
	Frequency          domain.Frequency  `json:"frequency"`
	PayoutType         domain.PayoutType `json:"payoutType"`
	IsPublic           bool              `json:"isPublic"`
}

// ContributeRequest is the body for POST /groups/{id}/contribute.
type ContributeRequest struct {
	Amount        string `json:"amount"`
	SettlementRef string `json:"settlementReference,omitempty"`
}

// ClaimRequest is the body for POST /groups/{id}/claim.
type ClaimRequest struct {
	SettlementRef string `json:"settlementReference,omitempty"`
}

// ClaimResponse reports the paid-out amount alongside the updated group.
type ClaimResponse struct {
	Group  *domain.Group `json:"group"`
	Amount string        `json:"amount"`
}

// Create creates a new group with the caller as its first participant.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	address := middleware.GetAddress(r.Context())

	var req CreateGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var errs validation.ValidationErrors
	if err := validation.ValidateGroupName(req.Name); err != nil {
		errs.Add("name", req.Name, err.Error())
	}
	amount, err := decimal.NewFromString(req.ContributionAmount)
	if err != nil {
		errs.Add("contributionAmount", req.ContributionAmount, "must be a decimal number")
	} else if err := validation.ValidateContributionAmount(amount); err != nil {
		errs.Add("contributionAmount", req.ContributionAmount, err.Error())
	}
	if err := validation.ValidateCapacity(req.Capacity); err != nil {
		errs.Add("capacity", "", err.Error())
	}
	if err := validation.ValidateFrequency(req.Frequency); err != nil {
		errs.Add("frequency", string(req.Frequency), err.Error())
	}
	if err := validation.ValidatePayoutType(req.PayoutType); err != nil {
		errs.Add("payoutType", string(req.PayoutType), err.Error())
	}
	if errs.HasErrors() {
		respondValidationErrors(w, errs)
		return
	}

	group, err := h.engine.CreateGroup(r.Context(), address, service.CreateGroupParams{
		Name:               req.Name,
		ContributionAmount: amount,
		Capacity:           req.Capacity,
		Frequency:          req.Frequency,
		PayoutType:         req.PayoutType,
		IsPublic:           req.IsPublic,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, group)
}

// Explore lists public groups that are still open for joining.
func (h *GroupHandler) Explore(w http.ResponseWriter, r *http.Request) {
	groups, err := h.engine.ExploreGroups(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

// Mine lists the groups the caller participates in.
func (h *GroupHandler) Mine(w http.ResponseWriter, r *http.Request) {
	address := middleware.GetAddress(r.Context())

	groups, err := h.engine.MyGroups(r.Context(), address)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

// Get returns a group with its roster and transaction history. Private
// groups are only visible to their members.
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	address := middleware.GetAddress(r.Context())
	id := chi.URLParam(r, "id")

	group, err := h.engine.GetGroup(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	if !group.IsPublic && !group.IsMember(address) {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	respondJSON(w, http.StatusOK, group)
}

// Join adds the caller to an open group.
func (h *GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
	address := middleware.GetAddress(r.Context())
	id := chi.URLParam(r, "id")

	group, err := h.engine.JoinGroup(r.Context(), id, address)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, group)
}

// Contribute records the caller's contribution for the current cycle.
func (h *GroupHandler) Contribute(w http.ResponseWriter, r *http.Request) {
	address := middleware.GetAddress(r.Context())
	id := chi.URLParam(r, "id")

	var req ContributeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondValidationError(w, "amount", req.Amount, "must be a decimal number")
		return
	}

	group, err := h.engine.Contribute(r.Context(), id, address, amount, req.SettlementRef)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, group)
}

// Claim pays the current cycle's pot to the caller if they are the
// designated recipient and everyone has contributed.
func (h *GroupHandler) Claim(w http.ResponseWriter, r *http.Request) {
	address := middleware.GetAddress(r.Context())
	id := chi.URLParam(r, "id")

	var req ClaimRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	group, amount, err := h.engine.ClaimPayout(r.Context(), id, address, req.SettlementRef)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, &ClaimResponse{Group: group, Amount: amount.String()})
}
