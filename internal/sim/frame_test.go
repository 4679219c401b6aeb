package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tram-simulator/internal/publisher"
	"tram-simulator/internal/schedule"
	"tram-simulator/internal/timeutil"
)

func simTrip(id string, minutes ...timeutil.Minutes) *schedule.Trip {
	trip := &schedule.Trip{ID: id, Route: "1"}
	for i, m := range minutes {
		trip.StopTimes = append(trip.StopTimes, schedule.StopTime{
			StopName:  "stop",
			Lat:       50.0 + float64(i)*0.01,
			Lon:       19.9 + float64(i)*0.01,
			Sequence:  i + 1,
			Departure: m,
			TripID:    id,
		})
	}
	return trip
}

func simNetwork(blocks ...*schedule.TramBlock) *schedule.Network {
	return &schedule.Network{
		Lines:  map[string]*schedule.TramLine{"1": {Number: "1"}},
		Blocks: blocks,
	}
}

type capturingPublisher struct {
	mu     sync.Mutex
	frames []publisher.FrameMessage
}

func (p *capturingPublisher) PublishFrame(msg publisher.FrameMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, msg)
	return nil
}

func (p *capturingPublisher) all() []publisher.FrameMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publisher.FrameMessage(nil), p.frames...)
}

func TestBuildFrame(t *testing.T) {
	trip := simTrip("t", 480, 485, 490)
	block := &schedule.TramBlock{ID: "b1", LineID: "1", ServiceID: "weekday", Trips: []*schedule.Trip{trip}}

	t.Run("in transit carries position and bearing", func(t *testing.T) {
		frame, err := BuildFrame(block, 482)
		require.NoError(t, err)
		assert.Equal(t, "IN_TRANSIT", frame.Status)
		require.NotNil(t, frame.Position)
		assert.InDelta(t, 50.004, frame.Position.Lat, 1e-9)
		require.NotNil(t, frame.Bearing)
		assert.Equal(t, 482, frame.SimMinute)
		assert.Equal(t, "08:02", frame.Clock)
	})

	t.Run("in depot carries no position", func(t *testing.T) {
		frame, err := BuildFrame(block, 400)
		require.NoError(t, err)
		assert.Equal(t, "IN_DEPOT", frame.Status)
		assert.Nil(t, frame.Position)
		assert.Nil(t, frame.Bearing)
	})

	t.Run("at terminus parks without bearing", func(t *testing.T) {
		later := simTrip("later", 520, 530)
		b := &schedule.TramBlock{ID: "b2", LineID: "1", Trips: []*schedule.Trip{trip, later}}
		frame, err := BuildFrame(b, 500)
		require.NoError(t, err)
		assert.Equal(t, "AT_TERMINUS", frame.Status)
		require.NotNil(t, frame.Position)
		assert.Nil(t, frame.Bearing)
	})
}

func TestManagerStep(t *testing.T) {
	inTransit := &schedule.TramBlock{ID: "moving", LineID: "1", Trips: []*schedule.Trip{simTrip("t", 480, 490)}}
	parked := &schedule.TramBlock{ID: "parked", LineID: "1", Trips: []*schedule.Trip{
		simTrip("done", 400, 410), simTrip("next", 520, 530),
	}}
	depot := &schedule.TramBlock{ID: "depot", LineID: "1", Trips: []*schedule.Trip{simTrip("late", 600, 610)}}

	t.Run("depot blocks are not published", func(t *testing.T) {
		pub := &capturingPublisher{}
		m := NewManager(simNetwork(inTransit, parked, depot), pub, time.Second, 1, 480, 490, 15, nil)
		m.step(485)
		frames := pub.all()
		require.Len(t, frames, 2)
		ids := []string{frames[0].BlockID, frames[1].BlockID}
		assert.Contains(t, ids, "moving")
		assert.Contains(t, ids, "parked")
	})

	t.Run("visible vehicles are capped", func(t *testing.T) {
		var blocks []*schedule.TramBlock
		for i := 0; i < 5; i++ {
			blocks = append(blocks, &schedule.TramBlock{
				ID: string(rune('a' + i)), LineID: "1",
				Trips: []*schedule.Trip{simTrip("t", 480, 490)},
			})
		}
		pub := &capturingPublisher{}
		m := NewManager(simNetwork(blocks...), pub, time.Second, 1, 480, 490, 3, nil)
		m.step(485)
		assert.Len(t, pub.all(), 3)
	})
}

func TestManagerRun(t *testing.T) {
	block := &schedule.TramBlock{ID: "b", LineID: "1", Trips: []*schedule.Trip{simTrip("t", 480, 482)}}
	pub := &capturingPublisher{}
	m := NewManager(simNetwork(block), pub, time.Millisecond, 1, 480, 482, 15, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Run(ctx))

	frames := pub.all()
	require.Len(t, frames, 3) // minutes 480, 481, 482
	assert.Equal(t, 480, frames[0].SimMinute)
	assert.Equal(t, 482, frames[2].SimMinute)
}

func TestPrecomputeFrames(t *testing.T) {
	block := &schedule.TramBlock{ID: "b", LineID: "1", Trips: []*schedule.Trip{simTrip("t", 480, 485)}}
	network := simNetwork(block)

	frames := PrecomputeFrames(network, 478, 487)
	require.Len(t, frames, 10)

	// before the trip: nothing to render
	assert.Empty(t, frames[0])
	// during the trip: one frame per minute, aligned with its index
	for i := 2; i <= 7; i++ {
		require.Len(t, frames[i], 1, "minute %d", 478+i)
		assert.Equal(t, 478+i, frames[i][0].SimMinute)
		assert.Equal(t, "IN_TRANSIT", frames[i][0].Status)
	}
	// after the trip the block is back in depot
	assert.Empty(t, frames[9])

	t.Run("inverted range", func(t *testing.T) {
		assert.Nil(t, PrecomputeFrames(network, 10, 5))
	})
}
