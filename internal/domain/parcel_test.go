package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParcelInvalidHold(t *testing.T) {
	p := NewParcel(9, 4, 2, NewClock(10, 30, 0), []SpecialCode{Invalid{}})
	require.NoError(t, p.SetStatus(InHub()))

	err := p.SetStatus(EnRoute(1))
	require.ErrorIs(t, err, ErrInvalidHold)
	assert.Equal(t, InHub(), p.Status())

	p.CorrectAddress(5)
	assert.False(t, p.Invalid())
	assert.Equal(t, LocationID(5), p.Destination)
	require.NoError(t, p.SetStatus(EnRoute(1)))
}

func TestParcelTerminalStatus(t *testing.T) {
	p := NewParcel(1, 2, 1, 0, nil)
	assert.Equal(t, EndOfDay, p.Deadline)
	assert.False(t, p.HasDeadline())

	require.NoError(t, p.SetStatus(Delivered(NewClock(9, 0, 0))))
	require.ErrorIs(t, p.SetStatus(InHub()), ErrTerminalStatus)
}

func TestParcelSnapshotRestore(t *testing.T) {
	p := NewParcel(3, 4, 1, 0, []SpecialCode{Invalid{}, TruckRestricted{VehicleIDs: []int{2}}})
	require.NoError(t, p.SetStatus(InHub()))
	snap := p.Snapshot()

	p.CorrectAddress(8)
	require.NoError(t, p.SetStatus(Delivered(NewClock(11, 0, 0))))

	p.Restore(snap)
	assert.True(t, p.Invalid())
	assert.Equal(t, LocationID(4), p.Destination)
	assert.Equal(t, InHub(), p.Status())
	assert.True(t, p.AllowedOn(2))
	assert.False(t, p.AllowedOn(1))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "IN HUB", InHub().String())
	assert.Equal(t, "DELAYED UNTIL 09:05 AM", DelayedStatus(NewClock(9, 5, 0)).String())
	assert.Equal(t, "EN ROUTE - VEHICLE 2", EnRoute(2).String())
	assert.Equal(t, "DELIVERED 10:00 AM", Delivered(NewClock(10, 0, 0)).String())
}
