package handlers

import (
	"delivery-dispatch-sim/internal/api/dto"
	"delivery-dispatch-sim/internal/services/routing"
	"errors"
	"net/http"
)

// RouteHandler regenerates routes. Request fields left at zero take their
// value from Defaults.
type RouteHandler struct {
	Sim      Simulation
	Defaults routing.Params
}

// Generate runs the route optimizer and restarts the day on its result.
func (h *RouteHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.GenerateRoutesRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	p := h.Defaults
	if req.NumRoutes != 0 {
		p.NumRoutes = req.NumRoutes
	}
	if req.Generations != 0 {
		p.Generations = req.Generations
	}
	if req.PopulationSize != 0 {
		p.PopulationSize = req.PopulationSize
	}
	if req.Seed != nil {
		p.Seed = *req.Seed
	}
	if err := p.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := h.Sim.Regenerate(r.Context(), p)
	if errors.Is(err, routing.ErrBadParameter) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		internalError(w, r, "routes.generate", err)
		return
	}

	res := dto.RouteSetResponse{
		RunID:     saved.RunID,
		CreatedAt: saved.CreatedAt,
		Fitness:   saved.Fitness,
		Routes:    make([][]string, 0, len(saved.Routes)),
	}
	for _, route := range saved.Routes {
		res.Routes = append(res.Routes, h.Sim.RouteNames(route))
	}
	writeJSON(w, r, http.StatusOK, res)
}
