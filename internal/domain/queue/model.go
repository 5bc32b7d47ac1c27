// Package queue provides the at-most-once admission store for polled tracker
// items and the retriever that scans a source for modified items.
package queue

import "time"

// QueuedItem marks one remote item as queued for processing. The (DataGroup,
// ItemID) pair is the identity; a second enqueue of the same pair is refused
// until the first is dequeued.
type QueuedItem struct {
	DataGroup string    `db:"data_group" json:"data_group"`
	ItemID    string    `db:"item_id" json:"item_id"`
	QueuedAt  time.Time `db:"queued_at" json:"queued_at"`
}

// ProcessedItemInfo describes a remote item observed by the poller.
type ProcessedItemInfo struct {
	ID          string
	LastUpdated *time.Time
	Version     string
	Deleted     bool
}
