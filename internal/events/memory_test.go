// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryBusDeliversToSubscriber(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	var got Event
	bus.Subscribe(func(ctx context.Context, e Event) { got = e })

	bus.Publish(context.Background(), Event{Type: EventDirChanged, Entries: []DirEntry{{EntryType: "File", Path: "a.txt"}}})

	assert.Equal(t, EventDirChanged, got.Type)
	assert.Len(t, got.Entries, 1)
}

func TestMemoryBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	count := 0
	id := bus.Subscribe(func(ctx context.Context, e Event) { count++ })
	bus.Unsubscribe(id)

	bus.Publish(context.Background(), Event{Type: EventDirChanged})
	assert.Equal(t, 0, count)
}

func TestMemoryBusHandlerPanicDoesNotStopOtherSubscribers(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	called := false
	bus.Subscribe(func(ctx context.Context, e Event) { panic("boom") })
	bus.Subscribe(func(ctx context.Context, e Event) { called = true })

	assert.NotPanics(t, func() { bus.Publish(context.Background(), Event{Type: EventDirChanged}) })
	assert.True(t, called)
}

func TestMemoryBusPublishAfterCloseIsNoop(t *testing.T) {
	bus := NewMemoryBus()
	called := false
	bus.Subscribe(func(ctx context.Context, e Event) { called = true })
	require := assert.New(t)
	require.NoError(bus.Close())

	bus.Publish(context.Background(), Event{Type: EventDirChanged})
	assert.False(t, called)
}
