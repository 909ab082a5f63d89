package priority

import (
	"testing"

	"delivery-dispatch-sim/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// graph: hub(1), A(2) 5mi out, B(3) 5mi out and 0.4mi from A, C(4) 5mi out and far from both.
func graph(t *testing.T) *domain.Registry {
	t.Helper()
	r := domain.NewRegistry()
	for _, n := range []string{"Hub", "A", "B", "C"} {
		_, err := r.Add(domain.Location{Name: n, Address: n})
		require.NoError(t, err)
	}
	links := []struct {
		a, b domain.LocationID
		d    float64
	}{
		{1, 2, 5}, {1, 3, 5}, {1, 4, 5}, {2, 3, 0.4}, {2, 4, 9}, {3, 4, 9},
	}
	for _, l := range links {
		require.NoError(t, r.Link(l.a, l.b, l.d))
	}
	return r
}

func TestScoreDeadlineOrdering(t *testing.T) {
	s := NewScorer(graph(t), 1, DefaultConfig())
	early := domain.NewParcel(1, 4, 1, domain.NewClock(9, 0, 0), nil)
	late := domain.NewParcel(2, 4, 1, domain.NewClock(15, 0, 0), nil)
	eod := domain.NewParcel(3, 4, 1, 0, nil)

	got := s.Score([]*domain.Parcel{early, late, eod})
	require.Len(t, got, 3)
	assert.Greater(t, got[0], got[1])
	assert.Greater(t, got[1], got[2])
}

func TestScoreSpecialCodeBonuses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bands = nil
	s := NewScorer(graph(t), 1, cfg)

	plain := domain.NewParcel(1, 4, 1, 0, nil)
	truck := domain.NewParcel(2, 4, 1, 0, []domain.SpecialCode{domain.TruckRestricted{VehicleIDs: []int{2}}})
	batch := domain.NewParcel(3, 4, 1, 0, []domain.SpecialCode{domain.BatchWith{ParcelIDs: []int{1}}})

	got := s.Score([]*domain.Parcel{plain, truck, batch})
	assert.InDelta(t, 50.0, got[0], 1e-9) // 5 miles from hub
	assert.InDelta(t, got[0]+cfg.SpecialBonus, got[1], 1e-9)
	assert.InDelta(t, got[0]+cfg.SpecialBonus+cfg.BatchBonus, got[2], 1e-9)

	deadline := domain.NewClock(10, 30, 0)
	urgentSpecial := domain.NewParcel(4, 4, 1, deadline, []domain.SpecialCode{domain.TruckRestricted{VehicleIDs: []int{2}}})
	urgentPlain := domain.NewParcel(5, 4, 1, deadline, nil)
	got = s.Score([]*domain.Parcel{urgentSpecial, urgentPlain})
	assert.InDelta(t, cfg.SpecialBonus+cfg.UrgentSpecialBonus, got[0]-got[1], 1e-9)
}

func TestScoreClusterBonusIsSymmetricAndOrderFree(t *testing.T) {
	s := NewScorer(graph(t), 1, DefaultConfig())
	a := domain.NewParcel(1, 2, 1, 0, nil)
	b := domain.NewParcel(2, 3, 1, 0, nil)
	c := domain.NewParcel(3, 4, 1, 0, nil)

	got := s.Score([]*domain.Parcel{a, b, c})
	assert.InDelta(t, 50.0+30.0, got[0], 1e-9)
	assert.InDelta(t, 50.0+30.0, got[1], 1e-9)
	assert.InDelta(t, 50.0, got[2], 1e-9)

	rev := s.Score([]*domain.Parcel{c, b, a})
	assert.Equal(t, got[0], rev[2])
	assert.Equal(t, got[1], rev[1])
	assert.Equal(t, got[2], rev[0])
}

func TestScoreHubParcelGetsNoClusterBonus(t *testing.T) {
	s := NewScorer(graph(t), 1, DefaultConfig())
	atHub := domain.NewParcel(1, 1, 1, 0, nil)
	near := domain.NewParcel(2, 2, 1, 0, nil)

	got := s.Score([]*domain.Parcel{atHub, near})
	assert.Zero(t, got[0])
	assert.InDelta(t, 50.0, got[1], 1e-9)
}
