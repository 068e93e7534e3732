package messaging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aula-hub/aula-classroom-hub/internal/domain/shared"
)

func handlerFunc(name string, fn func(shared.Event) error) shared.EventHandler {
	return shared.EventHandlerFunc{HandlerName: name, Fn: fn}
}

func TestEventBus_PublishToSubscribers(t *testing.T) {
	bus := NewEventBus(nil)

	var seen []string
	require.NoError(t, bus.Subscribe(shared.EventSessionSaved, handlerFunc("a", func(e shared.Event) error {
		seen = append(seen, "a")
		return nil
	})))
	require.NoError(t, bus.Subscribe(shared.EventSessionSaved, handlerFunc("b", func(e shared.Event) error {
		seen = append(seen, "b")
		return nil
	})))
	require.NoError(t, bus.Subscribe(shared.EventSessionDeleted, handlerFunc("c", func(e shared.Event) error {
		seen = append(seen, "c")
		return nil
	})))

	bus.Publish(shared.NewSessionSavedEvent("id", "9A", "2026-03-15"))

	// Handlers run in registration order; other types are not called.
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestEventBus_SubscribeAll(t *testing.T) {
	bus := NewEventBus(nil)

	count := 0
	require.NoError(t, bus.SubscribeAll(handlerFunc("all", func(e shared.Event) error {
		count++
		return nil
	})))

	bus.Publish(shared.NewSessionSavedEvent("id", "9A", "2026-03-15"))
	bus.Publish(shared.NewSessionDeletedEvent("9A", "2026-03-15"))

	assert.Equal(t, 2, count)
}

func TestEventBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := NewEventBus(nil)

	called := false
	require.NoError(t, bus.Subscribe(shared.EventSessionSaved, handlerFunc("boom", func(e shared.Event) error {
		return errors.New("boom")
	})))
	require.NoError(t, bus.Subscribe(shared.EventSessionSaved, handlerFunc("after", func(e shared.Event) error {
		called = true
		return nil
	})))

	bus.Publish(shared.NewSessionSavedEvent("id", "9A", "2026-03-15"))

	assert.True(t, called)
	published, failed := bus.Stats()
	assert.Equal(t, uint64(1), published)
	assert.Equal(t, uint64(1), failed)
}

func TestEventBus_ClosedBusDropsPublishes(t *testing.T) {
	bus := NewEventBus(nil)

	count := 0
	require.NoError(t, bus.Subscribe(shared.EventSessionSaved, handlerFunc("n", func(e shared.Event) error {
		count++
		return nil
	})))

	bus.Close()
	bus.Publish(shared.NewSessionSavedEvent("id", "9A", "2026-03-15"))
	assert.Equal(t, 0, count)

	err := bus.Subscribe(shared.EventSessionSaved, handlerFunc("late", func(e shared.Event) error { return nil }))
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestEventBus_NilHandlerRejected(t *testing.T) {
	bus := NewEventBus(nil)
	assert.Error(t, bus.Subscribe(shared.EventSessionSaved, nil))
	assert.Error(t, bus.SubscribeAll(nil))
}
