package registration_api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"conf-registration/internal/fees"
	"conf-registration/internal/logger"
	"conf-registration/internal/models"
	"conf-registration/internal/registration"
	"conf-registration/internal/utils"
)

type Handler struct {
	RegistrationService *registration.Service
	Logger              *logger.Logger
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := fees.HTTPStatus(err)
	if h.Logger != nil && status >= 500 {
		h.Logger.Error("REG_API", err.Error())
	}
	body := utils.ErrorResponse("request failed", err.Error())
	if allocErr, ok := err.(*fees.AllocationError); ok {
		// the form re-fetches the fee list after seeing one of these
		body.Message = string(allocErr.Reason)
	}
	utils.WriteJSON(w, status, body)
}

// Register commits an attendee to a fee. The response carries the price
// snapshot captured inside the allocation gate.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	confSlug := chi.URLParam(r, "conference")

	var req models.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.RegistrationService.Register(r.Context(), confSlug, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.Logger != nil {
		h.Logger.LogRegistration("CREATE", resp.RegistrationID, "registration confirmed")
	}
	utils.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	reg, err := h.RegistrationService.GetRegistration(chi.URLParam(r, "registrationID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reg)
}

// GetConfirmationQR serves the registration's confirmation QR as PNG.
func (h *Handler) GetConfirmationQR(w http.ResponseWriter, r *http.Request) {
	reg, err := h.RegistrationService.GetRegistration(chi.URLParam(r, "registrationID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(reg.ConfirmationQR) == 0 {
		http.Error(w, "no confirmation QR for this registration", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(reg.ConfirmationQR)
}

// VerifyConfirmation checks a scanned confirmation payload at the door.
func (h *Handler) VerifyConfirmation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Payload string `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	check, err := h.RegistrationService.VerifyConfirmation(req.Payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.Logger != nil {
		h.Logger.LogRegistration("VERIFY", check.RegistrationID, "confirmation scanned")
	}
	utils.WriteJSON(w, http.StatusOK, check)
}

func (h *Handler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	registrationID := chi.URLParam(r, "registrationID")
	if err := h.RegistrationService.Cancel(registrationID); err != nil {
		h.writeError(w, err)
		return
	}
	if h.Logger != nil {
		h.Logger.LogRegistration("CANCEL", registrationID, "registration cancelled")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.RegistrationService.ListByConference(chi.URLParam(r, "conference"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(regs)
}
