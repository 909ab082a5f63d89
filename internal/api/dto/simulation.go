package dto

type AdvanceRequest struct {
	To string `json:"to"`
}

type AdvanceResponse struct {
	Clock string `json:"clock"`
	More  bool   `json:"more"`
}

type VehicleResponse struct {
	VehicleID int      `json:"vehicle_id"`
	DriverID  int      `json:"driver_id,omitempty"`
	Mileage   float64  `json:"mileage"`
	AtHub     bool     `json:"at_hub"`
	Last      string   `json:"last"`
	Queue     []string `json:"queue"`
	Parcels   []int    `json:"parcels"`
	ETA       string   `json:"eta,omitempty"`
}

type SimulationResponse struct {
	Clock        string            `json:"clock"`
	Done         bool              `json:"done"`
	RunID        string            `json:"run_id,omitempty"`
	TotalMileage float64           `json:"total_mileage"`
	Delivered    int               `json:"delivered"`
	Attempted    int               `json:"attempted"`
	Vehicles     []VehicleResponse `json:"vehicles"`
}
