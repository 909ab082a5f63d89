package dto

type ParcelResponse struct {
	ParcelID    int      `json:"parcel_id"`
	Destination string   `json:"destination"`
	Address     string   `json:"address"`
	Deadline    string   `json:"deadline"`
	Codes       []string `json:"codes"`
	Status      string   `json:"status"`
	VehicleID   int      `json:"vehicle_id,omitempty"`
	DeliveredAt string   `json:"delivered_at,omitempty"`
	Priority    float64  `json:"priority"`
	AsOf        string   `json:"as_of"`
}

type ListParcelsResponse struct {
	Clock   string           `json:"clock"`
	Parcels []ParcelResponse `json:"parcels"`
}
