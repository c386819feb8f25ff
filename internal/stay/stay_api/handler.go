package stay_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-campsite/internal/logger"
	"ms-campsite/internal/pass"
	"ms-campsite/internal/stay"
	"ms-campsite/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	StayService *stay.Service
	Passes      *pass.Generator
	Logger      *logger.Logger
}

func NewHandler(stayService *stay.Service, passes *pass.Generator, log *logger.Logger) *Handler {
	return &Handler{
		StayService: stayService,
		Passes:      passes,
		Logger:      log,
	}
}

// failureStatus maps service errors onto HTTP statuses without leaking
// store internals into the response body.
func failureStatus(err error) int {
	switch {
	case errors.Is(err, stay.ErrStayNotFound), errors.Is(err, stay.ErrPlotNotFound):
		return http.StatusNotFound
	case errors.Is(err, stay.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, stay.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error, message string) {
	status := failureStatus(err)
	display := message
	if status != http.StatusInternalServerError {
		display = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(utils.ErrorResponse(message, display))
}

func (h *Handler) respond(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(utils.SuccessResponse(message, data)); err != nil {
		h.Logger.Error("API", fmt.Sprintf("failed to encode response: %v", err))
	}
}

func (h *Handler) RegisterStay(w http.ResponseWriter, r *http.Request) {
	var input stay.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.Logger.Error("API", fmt.Sprintf("RegisterStay: invalid body: %v", err))
		http.Error(w, "Invalid stay JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.StayService.RegisterStay(r.Context(), input)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("RegisterStay: %v", err))
		h.fail(w, err, "Could not register stay")
		return
	}
	h.Logger.LogStay("REGISTER", created.ID, "stay registered")

	h.respond(w, http.StatusCreated, "Stay registered", created)
}

func (h *Handler) GetStay(w http.ResponseWriter, r *http.Request) {
	stayID := chi.URLParam(r, "stayId")
	h.Logger.Info("API", fmt.Sprintf("GetStay: stayId=%s", stayID))

	stayData, err := h.StayService.GetStay(r.Context(), stayID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetStay: %v", err))
		h.fail(w, err, "Stay not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stayData); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetStay: failed to encode response: %v", err))
	}
}

func (h *Handler) GetOccupants(w http.ResponseWriter, r *http.Request) {
	stayID := chi.URLParam(r, "stayId")

	occupants, err := h.StayService.GetOccupants(r.Context(), stayID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetOccupants: %v", err))
		h.fail(w, err, "Could not load occupants")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(occupants); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetOccupants: failed to encode response: %v", err))
	}
}

func (h *Handler) ConfirmCheckIn(w http.ResponseWriter, r *http.Request) {
	stayID := chi.URLParam(r, "stayId")
	h.Logger.Info("API", fmt.Sprintf("ConfirmCheckIn: stayId=%s", stayID))

	confirmed, err := h.StayService.ConfirmCheckIn(r.Context(), stayID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ConfirmCheckIn: %v", err))
		h.fail(w, err, "Could not confirm check-in")
		return
	}
	h.Logger.LogStay("CHECKIN", stayID, "arrival confirmed")

	h.respond(w, http.StatusOK, "Check-in confirmed", confirmed)
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	stayID := chi.URLParam(r, "stayId")
	h.Logger.Info("API", fmt.Sprintf("Checkout: stayId=%s", stayID))

	finalized, err := h.StayService.Checkout(r.Context(), stayID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Checkout: %v", err))
		h.fail(w, err, "Could not check out stay")
		return
	}
	h.Logger.LogStay("CHECKOUT", stayID, "stay finalized")

	h.respond(w, http.StatusOK, "Stay checked out", finalized)
}

func (h *Handler) CancelStay(w http.ResponseWriter, r *http.Request) {
	stayID := chi.URLParam(r, "stayId")
	h.Logger.Info("API", fmt.Sprintf("CancelStay: stayId=%s", stayID))

	if err := h.StayService.CancelStay(r.Context(), stayID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CancelStay: %v", err))
		h.fail(w, err, "Could not cancel stay")
		return
	}
	h.Logger.LogStay("CANCEL", stayID, "stay cancelled")

	w.WriteHeader(http.StatusNoContent)
}

type mergeRequest struct {
	DestinationStayID string `json:"destination_stay_id"`
	OccupantHasNoPlot bool   `json:"occupant_has_no_plot"`
}

func (h *Handler) MergeStays(w http.ResponseWriter, r *http.Request) {
	stayID := chi.URLParam(r, "stayId")

	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid merge JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("MergeStays: source=%s destination=%s", stayID, req.DestinationStayID))

	if err := h.StayService.MergeStays(r.Context(), stayID, req.DestinationStayID, req.OccupantHasNoPlot); err != nil {
		h.Logger.Error("API", fmt.Sprintf("MergeStays: %v", err))
		h.fail(w, err, "Could not merge stays")
		return
	}
	h.Logger.LogStay("MERGE", stayID, fmt.Sprintf("merged into %s", req.DestinationStayID))

	h.respond(w, http.StatusOK, "Stays merged", map[string]string{
		"surviving_stay_id": req.DestinationStayID,
	})
}

type assignRequest struct {
	PlotIDs           []string         `json:"plot_ids"`
	Fusion            *stay.FusionInfo `json:"fusion,omitempty"`
	IncomingPlotCount int              `json:"incoming_plot_count"`
}

func (h *Handler) AssignPlots(w http.ResponseWriter, r *http.Request) {
	stayID := chi.URLParam(r, "stayId")

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid assignment JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("AssignPlots: stayId=%s plots=%v", stayID, req.PlotIDs))

	result, err := h.StayService.AssignPlots(r.Context(), stayID, req.PlotIDs, req.Fusion, req.IncomingPlotCount)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("AssignPlots: %v", err))
		h.fail(w, err, "Could not assign plots")
		return
	}
	h.Logger.LogStay("ASSIGN", result.StayID, fmt.Sprintf("plots %v assigned (merged=%v)", req.PlotIDs, result.WasMerged))

	h.respond(w, http.StatusOK, "Plots assigned", result)
}

func (h *Handler) GetPlot(w http.ResponseWriter, r *http.Request) {
	plotID := chi.URLParam(r, "plotId")

	plot, err := h.StayService.GetPlot(r.Context(), plotID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetPlot: %v", err))
		h.fail(w, err, "Plot not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(plot); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetPlot: failed to encode response: %v", err))
	}
}

type maintenanceRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *Handler) SetPlotMaintenance(w http.ResponseWriter, r *http.Request) {
	plotID := chi.URLParam(r, "plotId")

	var req maintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid maintenance JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.StayService.SetPlotMaintenance(r.Context(), plotID, req.Enabled); err != nil {
		h.Logger.Error("API", fmt.Sprintf("SetPlotMaintenance: %v", err))
		h.fail(w, err, "Could not update plot")
		return
	}

	h.respond(w, http.StatusOK, "Plot updated", nil)
}

// GetCheckInPass renders the stay's encrypted QR pass. Only confirmed
// check-ins get one.
func (h *Handler) GetCheckInPass(w http.ResponseWriter, r *http.Request) {
	stayID := chi.URLParam(r, "stayId")

	stayData, err := h.StayService.GetStay(r.Context(), stayID)
	if err != nil {
		h.fail(w, err, "Stay not found")
		return
	}
	if !stayData.CheckedIn {
		http.Error(w, "Stay has not confirmed arrival", http.StatusConflict)
		return
	}

	png, err := h.Passes.GeneratePass(*stayData)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetCheckInPass: %v", err))
		http.Error(w, "Could not generate check-in pass", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetCheckInPass: failed to write image: %v", err))
	}
}
