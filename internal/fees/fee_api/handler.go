package fee_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"conf-registration/internal/fees"
	"conf-registration/internal/fees/service"
	"conf-registration/internal/logger"
	"conf-registration/internal/models"
	"conf-registration/internal/utils"
)

type ConferenceResolver interface {
	GetConferenceBySlug(idOrSlug string) (*models.Conference, error)
}

type Handler struct {
	FeeService  *service.FeeService
	Conferences ConferenceResolver
	Logger      *logger.Logger
}

func NewHandler(feeService *service.FeeService, conferences ConferenceResolver, log *logger.Logger) *Handler {
	return &Handler{FeeService: feeService, Conferences: conferences, Logger: log}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := fees.HTTPStatus(err)
	if h.Logger != nil && status >= 500 {
		h.Logger.Error("FEE_API", err.Error())
	}
	body := utils.ErrorResponse("request failed", err.Error())
	if allocErr, ok := err.(*fees.AllocationError); ok {
		body.Message = string(allocErr.Reason)
	}
	utils.WriteJSON(w, status, body)
}

func (h *Handler) resolveConference(w http.ResponseWriter, r *http.Request) (*models.Conference, bool) {
	conf, err := h.Conferences.GetConferenceBySlug(chi.URLParam(r, "conference"))
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return conf, true
}

// GetPublicFees serves the registration form's fee list: gross prices
// only, inactive fees hidden, unavailable ones flagged with a reason.
func (h *Handler) GetPublicFees(w http.ResponseWriter, r *http.Request) {
	conf, ok := h.resolveConference(w, r)
	if !ok {
		return
	}
	options, err := h.FeeService.ListForForm(conf.ConferenceID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(options)
}

// GetAdminFees serves the dashboard list including inactive fees,
// net prices, sold counts and sold-out flags.
func (h *Handler) GetAdminFees(w http.ResponseWriter, r *http.Request) {
	conf, ok := h.resolveConference(w, r)
	if !ok {
		return
	}
	views, err := h.FeeService.ListForAdmin(conf.ConferenceID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

func (h *Handler) CreateFee(w http.ResponseWriter, r *http.Request) {
	conf, ok := h.resolveConference(w, r)
	if !ok {
		return
	}
	var input models.FeeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	fee, err := h.FeeService.CreateFee(conf.ConferenceID, input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.Logger != nil {
		h.Logger.LogFee("CREATE", fee.FeeID, fmt.Sprintf("fee %q created for conference %s, valid %s to %s",
			fee.Name, conf.ConferenceID, utils.FormatDate(fee.ValidFrom), utils.FormatDate(fee.ValidTo)))
	}
	utils.WriteJSON(w, http.StatusCreated, fee)
}

func (h *Handler) UpdateFee(w http.ResponseWriter, r *http.Request) {
	conf, ok := h.resolveConference(w, r)
	if !ok {
		return
	}
	feeID := chi.URLParam(r, "feeID")
	var patch models.FeePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	fee, err := h.FeeService.UpdateFee(feeID, conf.ConferenceID, patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.Logger != nil {
		h.Logger.LogFee("UPDATE", feeID, "fee updated")
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(fee)
}

func (h *Handler) DeactivateFee(w http.ResponseWriter, r *http.Request) {
	conf, ok := h.resolveConference(w, r)
	if !ok {
		return
	}
	feeID := chi.URLParam(r, "feeID")
	if err := h.FeeService.DeactivateFee(feeID, conf.ConferenceID); err != nil {
		h.writeError(w, err)
		return
	}
	if h.Logger != nil {
		h.Logger.LogFee("DEACTIVATE", feeID, "fee deactivated")
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderFees applies a bulk display-order reassignment.
// Expected PUT body: {"fee_ids": ["id-first", "id-second", ...]}
func (h *Handler) ReorderFees(w http.ResponseWriter, r *http.Request) {
	conf, ok := h.resolveConference(w, r)
	if !ok {
		return
	}
	var req struct {
		FeeIDs []string `json:"fee_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.FeeService.ReorderFees(conf.ConferenceID, req.FeeIDs); err != nil {
		h.writeError(w, err)
		return
	}
	if h.Logger != nil {
		h.Logger.LogFee("REORDER", conf.ConferenceID, fmt.Sprintf("%d fees reordered", len(req.FeeIDs)))
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("fees reordered", nil))
}
