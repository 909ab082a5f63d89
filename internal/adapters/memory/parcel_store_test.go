package memory

import (
	"testing"

	"delivery-dispatch-sim/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParcelStoreKeepsInsertionOrder(t *testing.T) {
	s := NewParcelStore()
	for _, id := range []int{7, 2, 9} {
		require.NoError(t, s.Insert(domain.NewParcel(id, 1, 1, 0, nil)))
	}

	var ids []int
	for _, p := range s.All() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int{7, 2, 9}, ids)
	assert.Equal(t, 3, s.Len())

	p, ok := s.Get(2)
	require.True(t, ok)
	assert.Equal(t, 2, p.ID)

	_, ok = s.Get(42)
	assert.False(t, ok)
}

func TestParcelStoreRejectsDuplicates(t *testing.T) {
	_, err := NewParcelStoreFrom([]*domain.Parcel{
		domain.NewParcel(1, 1, 1, 0, nil),
		domain.NewParcel(1, 2, 1, 0, nil),
	})
	require.ErrorIs(t, err, ErrDuplicateParcel)

	assert.Error(t, NewParcelStore().Insert(nil))
}

func TestParcelStoreSharesParcels(t *testing.T) {
	p := domain.NewParcel(1, 1, 1, 0, nil)
	s, err := NewParcelStoreFrom([]*domain.Parcel{p})
	require.NoError(t, err)

	require.NoError(t, p.SetStatus(domain.InHub()))
	got, _ := s.Get(1)
	assert.Equal(t, domain.StatusInHub, got.Status().Kind)

	all := s.All()
	all[0] = nil
	assert.NotNil(t, s.All()[0])
}
