package domain

import (
	"fmt"
	"time"
)

const (
	DefaultCapacity = 16
	DefaultAvgSpeed = 18.0 // mph

	arrivalEpsilon = 1e-9
)

// Driver is identity only. A driver is available when no vehicle references it.
type Driver struct {
	ID   int
	Name string
}

// Vehicle carries parcels along a FIFO queue of stops. It is AT_HUB when its
// last location is the hub and the queue is empty, EN_ROUTE otherwise.
type Vehicle struct {
	ID       int
	Capacity int
	AvgSpeed float64
	Mileage  float64
	Driver   *Driver
	Hub      LocationID
	Last     LocationID
	Queue    []LocationID
	ToNext   float64
	Parcels  []*Parcel
}

func NewVehicle(id int, capacity int, avgSpeed float64, hub LocationID) *Vehicle {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if avgSpeed <= 0 {
		avgSpeed = DefaultAvgSpeed
	}
	return &Vehicle{
		ID:       id,
		Capacity: capacity,
		AvgSpeed: avgSpeed,
		Hub:      hub,
		Last:     hub,
	}
}

func (v *Vehicle) AtHub() bool { return v.Last == v.Hub && len(v.Queue) == 0 }

func (v *Vehicle) Full() bool { return len(v.Parcels) >= v.Capacity }

// Carries reports whether p is loaded on this vehicle.
func (v *Vehicle) Carries(p *Parcel) bool {
	for _, q := range v.Parcels {
		if q == p {
			return true
		}
	}
	return false
}

// Load a single parcel onto the vehicle.
func (v *Vehicle) Load(p *Parcel) error {
	if v.Full() {
		return fmt.Errorf("load vehicle %d: parcel %d (capacity=%d): %w", v.ID, p.ID, v.Capacity, ErrCapacity)
	}
	v.Parcels = append(v.Parcels, p)
	return nil
}

// Load multiple parcels; all or nothing.
func (v *Vehicle) LoadMultiple(ps []*Parcel) error {
	if len(v.Parcels)+len(ps) > v.Capacity {
		return fmt.Errorf("load vehicle %d: %d parcels (loaded=%d capacity=%d): %w",
			v.ID, len(ps), len(v.Parcels), v.Capacity, ErrCapacity)
	}
	v.Parcels = append(v.Parcels, ps...)
	return nil
}

// Clear unloads the vehicle and returns what was aboard.
func (v *Vehicle) Clear() []*Parcel {
	out := v.Parcels
	v.Parcels = nil
	return out
}

// Push appends stops to the queue.
func (v *Vehicle) Push(g Distancer, stops ...LocationID) {
	if len(stops) == 0 {
		return
	}
	wasEmpty := len(v.Queue) == 0
	v.Queue = append(v.Queue, stops...)
	if wasEmpty {
		v.ToNext = g.Distance(v.Last, v.Queue[0])
	}
}

// Drive advances the vehicle by one minute at its average speed and reports
// whether it reached the head of its queue. Arrival snaps to the stop; the
// unused part of the minute is dropped.
func (v *Vehicle) Drive(g Distancer) bool {
	if len(v.Queue) == 0 {
		return false
	}

	step := v.AvgSpeed / 60
	if v.ToNext <= step+arrivalEpsilon {
		v.Mileage += v.ToNext
		v.Last = v.Queue[0]
		v.Queue = v.Queue[1:]
		v.ToNext = 0
		if len(v.Queue) > 0 {
			v.ToNext = g.Distance(v.Last, v.Queue[0])
		}
		return true
	}

	v.Mileage += step
	v.ToNext -= step
	return false
}

// AttemptDelivery delivers every loaded parcel addressed to loc and returns them.
func (v *Vehicle) AttemptDelivery(loc LocationID, at Clock) ([]*Parcel, error) {
	var delivered []*Parcel
	kept := v.Parcels[:0]
	for _, p := range v.Parcels {
		if p.Destination != loc {
			kept = append(kept, p)
			continue
		}
		if err := p.SetStatus(Delivered(at)); err != nil {
			return nil, fmt.Errorf("attempt delivery vehicle %d: %w", v.ID, err)
		}
		delivered = append(delivered, p)
	}
	v.Parcels = kept
	return delivered, nil
}

// ETA estimates when the vehicle finishes its queue. ok is false when idle.
func (v *Vehicle) ETA(g Distancer, now Clock) (_ Clock, ok bool) {
	if len(v.Queue) == 0 {
		return 0, false
	}
	miles := v.ToNext
	for i := 1; i < len(v.Queue); i++ {
		miles += g.Distance(v.Queue[i-1], v.Queue[i])
	}
	hours := miles / v.AvgSpeed
	return now.Add(time.Duration(hours * float64(time.Hour))), true
}

// Reset returns the vehicle to the hub, empty, with no driver and a zero odometer.
func (v *Vehicle) Reset() {
	v.Mileage = 0
	v.Driver = nil
	v.Last = v.Hub
	v.Queue = nil
	v.ToNext = 0
	v.Parcels = nil
}
