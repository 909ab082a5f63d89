package domain

import "errors"

// Sentinel errors shared by the domain model. Callers match them with errors.Is.
var (
	// ErrDuplicateLocation is returned when two Locations share an id or an (address, zip) key.
	ErrDuplicateLocation = errors.New("duplicate location")

	// ErrUnknownLocation is returned when a lookup names a Location the registry does not hold.
	ErrUnknownLocation = errors.New("unknown location")

	// ErrDistanceConflict is returned when a linked pair is re-linked with a different distance.
	ErrDistanceConflict = errors.New("conflicting distance for linked locations")

	// ErrInvalidHold is returned when a parcel flagged INVALID is moved to any status but IN_HUB.
	ErrInvalidHold = errors.New("parcel is held in hub until its address is confirmed")

	// ErrTerminalStatus is returned when a delivered or attempted parcel changes status.
	ErrTerminalStatus = errors.New("parcel status is terminal")

	// ErrCapacity is returned when a vehicle is loaded past its capacity.
	ErrCapacity = errors.New("vehicle at full capacity")

	// ErrUnknownSpecialCode is returned for special codes or notes that cannot be parsed.
	ErrUnknownSpecialCode = errors.New("unrecognized special code")

	// ErrBadClock is returned for malformed clock strings.
	ErrBadClock = errors.New("malformed clock value")
)
