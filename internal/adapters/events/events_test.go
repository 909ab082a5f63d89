package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"delivery-dispatch-sim/internal/ports"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisherDeliversJSON(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := rdb.Subscribe(ctx, DefaultChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub := NewRedisPublisher(rdb, "")
	assert.Equal(t, DefaultChannel, pub.Channel())

	evt := ports.Event{Kind: ports.EventParcelDelivered, Clock: "09:12 AM", VehicleID: 2, ParcelIDs: []int{4, 9}, Stops: []int{7}}
	require.NoError(t, pub.Publish(ctx, evt))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultChannel, msg.Channel)

	var got ports.Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, evt.Kind, got.Kind)
	assert.Equal(t, []int{4, 9}, got.ParcelIDs)
	assert.Equal(t, 2, got.VehicleID)
}

func TestRedisPublisherFromURL(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	pub, err := NewRedisPublisherFromURL(ctx, "redis://"+mr.Addr(), "sim")
	require.NoError(t, err)
	defer pub.Close()
	require.NoError(t, pub.Publish(ctx, ports.Event{Kind: ports.EventDispatched}))

	_, err = NewRedisPublisherFromURL(ctx, "not a url", "sim")
	assert.Error(t, err)
}

func TestRedisPublisherFailsWhenServerGone(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	err := NewRedisPublisher(rdb, "sim").Publish(context.Background(), ports.Event{Kind: ports.EventReturned})
	assert.Error(t, err)
}

type failing struct{ calls int }

func (f *failing) Publish(context.Context, ports.Event) error {
	f.calls++
	return errors.New("broker down")
}

func TestMultiPublishesToAll(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	f := &failing{}
	m := Multi{f, NewLogPublisher()}
	err := m.Publish(context.Background(), ports.Event{Kind: ports.EventParcelLoaded, Clock: "08:00 AM", VehicleID: 1, ParcelIDs: []int{3}})
	assert.Error(t, err)
	assert.Equal(t, 1, f.calls)
	assert.Contains(t, buf.String(), `"kind":"parcel.loaded"`)
	assert.Contains(t, buf.String(), `"parcels":[3]`)
}
