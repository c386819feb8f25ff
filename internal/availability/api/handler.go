package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ms-campsite/internal/availability"
	"ms-campsite/internal/logger"
	"ms-campsite/internal/utils"

	"github.com/go-chi/chi/v5"
)

const dateLayout = "2006-01-02"

type Handler struct {
	Checker *availability.Checker
	Logger  *logger.Logger
}

func NewHandler(checker *availability.Checker, log *logger.Logger) *Handler {
	return &Handler{Checker: checker, Logger: log}
}

// CheckAvailability answers GET /availability?plot_id=&start=&end=.
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	plotID := r.URL.Query().Get("plot_id")
	if plotID == "" {
		http.Error(w, "plot_id is required", http.StatusBadRequest)
		return
	}

	start, err := time.Parse(dateLayout, r.URL.Query().Get("start"))
	if err != nil {
		http.Error(w, "start must be a YYYY-MM-DD date", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(dateLayout, r.URL.Query().Get("end"))
	if err != nil {
		http.Error(w, "end must be a YYYY-MM-DD date", http.StatusBadRequest)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CheckAvailability: plot=%s range=%s..%s", plotID,
		start.Format(dateLayout), end.Format(dateLayout)))

	result, err := h.Checker.CheckAvailability(r.Context(), plotID, start, end)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CheckAvailability: %v", err))
		switch {
		case errors.Is(err, availability.ErrInvalidRange):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, availability.ErrPlotNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, "Could not check availability", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CheckAvailability: failed to encode response: %v", err))
	}
}

type reservationRequest struct {
	PlotID        string `json:"plot_id"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	HolderName    string `json:"holder_name"`
	HolderContact string `json:"holder_contact"`
}

func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid reservation JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		http.Error(w, "start_date must be a YYYY-MM-DD date", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		http.Error(w, "end_date must be a YYYY-MM-DD date", http.StatusBadRequest)
		return
	}

	res, err := h.Checker.CreateReservation(r.Context(), availability.ReservationInput{
		PlotID:        req.PlotID,
		StartDate:     start,
		EndDate:       end,
		HolderName:    req.HolderName,
		HolderContact: req.HolderContact,
	})
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateReservation: %v", err))
		switch {
		case errors.Is(err, availability.ErrInvalidRange), errors.Is(err, availability.ErrPlotBlocked):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, availability.ErrPlotNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, "Could not create reservation: "+err.Error(), http.StatusConflict)
		}
		return
	}
	h.Logger.Info("RESERVATION", fmt.Sprintf("created %s for plot %s", res.ID, res.PlotID))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(utils.SuccessResponse("Reservation created", res)); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateReservation: failed to encode response: %v", err))
	}
}

func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	reservationID := chi.URLParam(r, "reservationId")

	res, err := h.Checker.GetReservation(r.Context(), reservationID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetReservation: %v", err))
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetReservation: failed to encode response: %v", err))
	}
}

func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	reservationID := chi.URLParam(r, "reservationId")
	h.Logger.Info("API", fmt.Sprintf("CancelReservation: id=%s", reservationID))

	if err := h.Checker.CancelReservation(r.Context(), reservationID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CancelReservation: %v", err))
		http.Error(w, "Could not cancel reservation: "+err.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
