package handlers

import (
	"delivery-dispatch-sim/internal/api/dto"
	"delivery-dispatch-sim/internal/domain"
	"delivery-dispatch-sim/internal/services/simulation"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// ParcelHandler exposes parcel status at the current clock or a past one.
type ParcelHandler struct {
	Sim Simulation
}

func (h *ParcelHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	views := h.Sim.Parcels()
	res := dto.ListParcelsResponse{
		Clock:   h.Sim.Clock().String(),
		Parcels: make([]dto.ParcelResponse, 0, len(views)),
	}
	for _, v := range views {
		res.Parcels = append(res.Parcels, parcelResponse(v))
	}

	writeJSON(w, r, http.StatusOK, res)
}

// Get reports one parcel. With ?at=HH:MM AM/PM the day is replayed to that
// time first.
func (h *ParcelHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "parcel id must be a positive integer")
		return
	}

	at := h.Sim.Clock()
	if raw := strings.TrimSpace(r.URL.Query().Get("at")); raw != "" {
		if at, err = domain.ParseClock(raw); err != nil {
			writeError(w, r, http.StatusBadRequest, "at must look like 10:30 AM")
			return
		}
	}

	view, err := h.Sim.StatusAt(r.Context(), id, at)
	if errors.Is(err, simulation.ErrUnknownParcel) {
		writeError(w, r, http.StatusNotFound, "parcel not found")
		return
	}
	if err != nil {
		internalError(w, r, "parcels.status_at", err)
		return
	}

	writeJSON(w, r, http.StatusOK, parcelResponse(view))
}

func parcelResponse(v simulation.ParcelView) dto.ParcelResponse {
	codes := v.Codes
	if codes == nil {
		codes = []string{}
	}
	return dto.ParcelResponse{
		ParcelID:    v.ID,
		Destination: v.Destination,
		Address:     v.Address,
		Deadline:    v.Deadline,
		Codes:       codes,
		Status:      v.Status,
		VehicleID:   v.VehicleID,
		DeliveredAt: v.DeliveredAt,
		Priority:    v.Priority,
		AsOf:        v.AsOf,
	}
}
