// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events provides the in-process pub/sub bus used to fan
// directory-listing changes out to every connected WebSocket session.
// There's exactly one fixed event shape here and one durable subscriber
// kind, a WS session's write pump, so there's no wildcard pattern
// matching and no history/retention — it only ever needs the latest
// listing.
package events

import "context"

// Event is a single DirList recomputation, published whenever the
// directory watcher's scan produces a different listing than last time.
type Event struct {
	Type    string
	Entries []DirEntry
}

// DirEntry mirrors proto.DirEntry without importing the proto package,
// keeping events free of the protocol layer's framing concerns.
type DirEntry struct {
	EntryType string
	Path      string
}

const EventDirChanged = "dir.changed"

// Handler processes a received event.
type Handler func(ctx context.Context, event Event)

// SubscriptionID uniquely identifies a subscription.
type SubscriptionID uint64

// Bus is the pub/sub contract the watcher publishes through and the
// WebSocket server subscribes against.
type Bus interface {
	Publish(ctx context.Context, event Event)
	Subscribe(handler Handler) SubscriptionID
	Unsubscribe(id SubscriptionID)
	Close() error
}
