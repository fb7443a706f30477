package events_test

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmritiSatyan/garden/internal/events"
)

func TestBusDeliversInRegistrationOrder(t *testing.T) {
	t.Parallel()

	b := events.NewBus()
	var got []string
	b.On("log", func(ev events.Event) { got = append(got, "first:"+ev.Payload.(string)) })
	b.On("*", func(ev events.Event) { got = append(got, "any:"+ev.Name) })
	b.On("log", func(ev events.Event) { got = append(got, "second:"+ev.Payload.(string)) })

	b.Emit("log", "hello")
	b.Emit("other", nil)

	assert.Equal(t, []string{"first:hello", "any:log", "second:hello", "any:other"}, got)
}

func TestBusOff(t *testing.T) {
	t.Parallel()

	b := events.NewBus()
	var count atomic.Int32
	off := b.On("log", func(events.Event) { count.Add(1) })

	b.Emit("log", nil)
	off()
	off()
	b.Emit("log", nil)

	assert.Equal(t, int32(1), count.Load())
}

func TestBusRecoversHandlerPanic(t *testing.T) {
	t.Parallel()

	b := events.NewBus()
	var reached bool
	b.On("log", func(events.Event) { panic("boom") })
	b.On("log", func(events.Event) { reached = true })

	require.NotPanics(t, func() { b.Emit("log", nil) })
	assert.True(t, reached)
}

func TestHistory(t *testing.T) {
	t.Parallel()

	b := events.NewBus()
	h := events.NewHistory(2)
	b.On("log", h.Handle)

	b.Emit("log", 1)
	b.Emit("log", 2)
	b.Emit("log", 3)

	all := h.All()
	require.Len(t, all, 2)
	assert.Equal(t, 2, all[0].Payload)
	assert.Equal(t, 3, all[1].Payload)
	assert.Len(t, h.Last(1), 1)
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() { events.Discard.Emit("log", "x") })
}
