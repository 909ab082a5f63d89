package handlers

import (
	"context"
	"delivery-dispatch-sim/internal/api/dto"
	"delivery-dispatch-sim/internal/domain"
	"delivery-dispatch-sim/internal/ports"
	"delivery-dispatch-sim/internal/services/routing"
	"delivery-dispatch-sim/internal/services/simulation"
	"errors"
	"net/http"
	"strings"
)

// Simulation is what the handlers need from the simulation service.
type Simulation interface {
	Clock() domain.Clock
	AdvanceTo(ctx context.Context, t domain.Clock) (bool, error)
	Reset(ctx context.Context)
	StatusAt(ctx context.Context, id int, t domain.Clock) (simulation.ParcelView, error)
	Parcels() []simulation.ParcelView
	Report() simulation.Report
	Regenerate(ctx context.Context, p routing.Params) (ports.SavedRouteSet, error)
	RouteNames(r domain.Route) []string
}

type SimulationHandler struct {
	Sim Simulation
}

// Get reports the clock, vehicles and totals.
func (h *SimulationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, r, http.StatusOK, simulationResponse(h.Sim.Report()))
}

// Advance ticks the simulation to the requested clock.
func (h *SimulationHandler) Advance(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.AdvanceRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.To) == "" {
		writeError(w, r, http.StatusBadRequest, "to is required")
		return
	}
	to, err := domain.ParseClock(req.To)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "to must look like 10:30 AM")
		return
	}

	more, err := h.Sim.AdvanceTo(r.Context(), to)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeError(w, r, http.StatusServiceUnavailable, "request cancelled")
			return
		}
		internalError(w, r, "simulation.advance", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.AdvanceResponse{Clock: h.Sim.Clock().String(), More: more})
}

// Reset rewinds the day to its start.
func (h *SimulationHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	h.Sim.Reset(r.Context())
	writeJSON(w, r, http.StatusOK, dto.AdvanceResponse{Clock: h.Sim.Clock().String(), More: true})
}

func simulationResponse(rep simulation.Report) dto.SimulationResponse {
	res := dto.SimulationResponse{
		Clock:        rep.Clock,
		Done:         rep.Done,
		RunID:        rep.RunID,
		TotalMileage: rep.TotalMileage,
		Delivered:    rep.Delivered,
		Attempted:    rep.Attempted,
		Vehicles:     make([]dto.VehicleResponse, 0, len(rep.Vehicles)),
	}
	for _, v := range rep.Vehicles {
		res.Vehicles = append(res.Vehicles, dto.VehicleResponse{
			VehicleID: v.ID,
			DriverID:  v.DriverID,
			Mileage:   v.Mileage,
			AtHub:     v.AtHub,
			Last:      v.Last,
			Queue:     v.Queue,
			Parcels:   v.Parcels,
			ETA:       v.ETA,
		})
	}
	return res
}
