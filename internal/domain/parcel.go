package domain

import (
	"fmt"
	"slices"
)

type StatusKind int

const (
	StatusNew StatusKind = iota
	StatusInHub
	StatusDelayed
	StatusEnRoute
	StatusDelivered
	StatusAttempted
)

// Status is a parcel's position in NEW -> IN_HUB -> [DELAYED_UNTIL -> IN_HUB]
// -> EN_ROUTE -> DELIVERED | ATTEMPTED.
type Status struct {
	Kind      StatusKind
	Until     Clock // DELAYED_UNTIL
	VehicleID int   // EN_ROUTE
	At        Clock // DELIVERED
}

func InHub() Status { return Status{Kind: StatusInHub} }
func DelayedStatus(until Clock) Status { return Status{Kind: StatusDelayed, Until: until} }
func EnRoute(vehicleID int) Status { return Status{Kind: StatusEnRoute, VehicleID: vehicleID} }
func Delivered(at Clock) Status { return Status{Kind: StatusDelivered, At: at} }
func Attempted() Status { return Status{Kind: StatusAttempted} }

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s.Kind == StatusDelivered || s.Kind == StatusAttempted
}

func (s Status) String() string {
	switch s.Kind {
	case StatusNew:
		return "NEW"
	case StatusInHub:
		return "IN HUB"
	case StatusDelayed:
		return "DELAYED UNTIL " + s.Until.String()
	case StatusEnRoute:
		return fmt.Sprintf("EN ROUTE - VEHICLE %d", s.VehicleID)
	case StatusDelivered:
		return "DELIVERED " + s.At.String()
	case StatusAttempted:
		return "ATTEMPTED"
	}
	return fmt.Sprintf("STATUS(%d)", int(s.Kind))
}

// Parcel is a single delivery unit. Status changes go through SetStatus so the
// INVALID hold and terminal states are enforced.
type Parcel struct {
	ID          int
	Destination LocationID
	Weight      float64
	Deadline    Clock
	Codes       []SpecialCode
	status      Status
}

func NewParcel(id int, dest LocationID, weight float64, deadline Clock, codes []SpecialCode) *Parcel {
	if deadline == 0 {
		deadline = EndOfDay
	}
	return &Parcel{
		ID:          id,
		Destination: dest,
		Weight:      weight,
		Deadline:    deadline,
		Codes:       codes,
	}
}

func (p *Parcel) Status() Status { return p.status }

// SetStatus moves the parcel to next.
func (p *Parcel) SetStatus(next Status) error {
	if p.status.Terminal() {
		return fmt.Errorf("parcel %d: %s -> %s: %w", p.ID, p.status, next, ErrTerminalStatus)
	}
	if next.Kind != StatusInHub && p.Invalid() {
		return fmt.Errorf("parcel %d: %s -> %s: %w", p.ID, p.status, next, ErrInvalidHold)
	}
	p.status = next
	return nil
}

// HasDeadline reports whether the parcel has a deadline earlier than end of day.
func (p *Parcel) HasDeadline() bool { return p.Deadline < EndOfDay }

func (p *Parcel) Invalid() bool {
	for _, c := range p.Codes {
		if _, ok := c.(Invalid); ok {
			return true
		}
	}
	return false
}

// CorrectAddress points the parcel at dest and clears the INVALID flag.
func (p *Parcel) CorrectAddress(dest LocationID) {
	p.Destination = dest
	p.Codes = slices.DeleteFunc(slices.Clone(p.Codes), func(c SpecialCode) bool {
		_, ok := c.(Invalid)
		return ok
	})
}

func (p *Parcel) TruckRestriction() (TruckRestricted, bool) {
	for _, c := range p.Codes {
		if t, ok := c.(TruckRestricted); ok {
			return t, true
		}
	}
	return TruckRestricted{}, false
}

// AllowedOn reports whether the parcel may ride on vehicle id.
func (p *Parcel) AllowedOn(vehicleID int) bool {
	t, ok := p.TruckRestriction()
	return !ok || t.Allows(vehicleID)
}

func (p *Parcel) Delay() (Clock, bool) {
	for _, c := range p.Codes {
		if d, ok := c.(DelayedUntil); ok {
			return d.At, true
		}
	}
	return 0, false
}

func (p *Parcel) Batch() ([]int, bool) {
	for _, c := range p.Codes {
		if b, ok := c.(BatchWith); ok {
			return b.ParcelIDs, true
		}
	}
	return nil, false
}

// ParcelSnapshot captures the mutable parts of a parcel for a day reset.
type ParcelSnapshot struct {
	Destination LocationID
	Codes       []SpecialCode
	Status      Status
}

func (p *Parcel) Snapshot() ParcelSnapshot {
	return ParcelSnapshot{
		Destination: p.Destination,
		Codes:       slices.Clone(p.Codes),
		Status:      p.status,
	}
}

// Restore rewinds the parcel to s, bypassing the status rules.
func (p *Parcel) Restore(s ParcelSnapshot) {
	p.Destination = s.Destination
	p.Codes = slices.Clone(s.Codes)
	p.status = s.Status
}

// AddressCorrection re-points a parcel at a confirmed destination once the
// simulated clock reaches At.
type AddressCorrection struct {
	ParcelID    int
	At          Clock
	Destination LocationID
}
