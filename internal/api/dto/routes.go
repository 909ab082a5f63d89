package dto

import "time"

type GenerateRoutesRequest struct {
	NumRoutes      int    `json:"num_routes"`
	Generations    int    `json:"generations"`
	PopulationSize int    `json:"population_size"`
	Seed           *int64 `json:"seed"`
}

type RouteSetResponse struct {
	RunID     string     `json:"run_id"`
	CreatedAt time.Time  `json:"created_at"`
	Fitness   float64    `json:"fitness"`
	Routes    [][]string `json:"routes"`
}
