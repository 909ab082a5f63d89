package simulation

import (
	"delivery-dispatch-sim/internal/domain"
	"strconv"
)

// ParcelView is a parcel as seen at one clock reading.
type ParcelView struct {
	ID          int
	Destination string
	Address     string
	Deadline    string
	Codes       []string
	Status      string
	VehicleID   int
	DeliveredAt string
	Priority    float64
	AsOf        string
}

type VehicleView struct {
	ID       int
	DriverID int
	Mileage  float64
	AtHub    bool
	Last     string
	Queue    []string
	Parcels  []int
	ETA      string
}

type Report struct {
	Clock        string
	Done         bool
	RunID        string
	TotalMileage float64
	Vehicles     []VehicleView
	Parcels      []ParcelView
	Delivered    int
	Attempted    int
}

// Parcels lists every parcel at the current clock.
func (s *Service) Parcels() []ParcelView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parcelViews()
}

// Report summarises the day so far: mileage per vehicle and every parcel's status.
func (s *Service) Report() Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.sched.Clock()
	r := Report{
		Clock:   now.String(),
		Done:    s.sched.Done(),
		RunID:   s.runID,
		Parcels: s.parcelViews(),
	}
	for _, v := range s.sched.Vehicles() {
		vv := VehicleView{
			ID:      v.ID,
			Mileage: v.Mileage,
			AtHub:   v.AtHub(),
			Last:    s.name(v.Last),
		}
		if v.Driver != nil {
			vv.DriverID = v.Driver.ID
		}
		for _, id := range v.Queue {
			vv.Queue = append(vv.Queue, s.name(id))
		}
		for _, p := range v.Parcels {
			vv.Parcels = append(vv.Parcels, p.ID)
		}
		if eta, ok := v.ETA(s.graph, now); ok {
			vv.ETA = eta.String()
		}
		r.TotalMileage += v.Mileage
		r.Vehicles = append(r.Vehicles, vv)
	}
	for _, p := range r.Parcels {
		switch {
		case p.DeliveredAt != "":
			r.Delivered++
		case p.Status == domain.Attempted().String():
			r.Attempted++
		}
	}
	return r
}

func (s *Service) parcelViews() []ParcelView {
	parcels := s.store.All()
	out := make([]ParcelView, 0, len(parcels))
	for _, p := range parcels {
		out = append(out, s.parcelView(p))
	}
	return out
}

func (s *Service) parcelView(p *domain.Parcel) ParcelView {
	st := p.Status()
	v := ParcelView{
		ID:          p.ID,
		Destination: s.name(p.Destination),
		Deadline:    "EOD",
		Codes:       domain.FormatSpecialCodes(p.Codes),
		Status:      st.String(),
		Priority:    s.sched.Priority(p.ID),
		AsOf:        s.sched.Clock().String(),
	}
	if p.HasDeadline() {
		v.Deadline = p.Deadline.String()
	}
	if l, ok := s.locs[p.Destination]; ok {
		v.Address = l.Address
	}
	switch st.Kind {
	case domain.StatusEnRoute:
		v.VehicleID = st.VehicleID
	case domain.StatusDelivered:
		v.DeliveredAt = st.At.String()
	}
	return v
}

func (s *Service) name(id domain.LocationID) string {
	if l, ok := s.locs[id]; ok {
		return l.Name
	}
	return "#" + strconv.Itoa(int(id))
}

// RouteNames spells a route out as location names.
func (s *Service) RouteNames(r domain.Route) []string {
	out := make([]string, len(r))
	for i, id := range r {
		out[i] = s.name(id)
	}
	return out
}
