// Package store is a thin adapter over the key-value engine backing the
// three logical collections (events, players, detections). Records are
// addressed by a composite primary key: pk partitions by tenant and player,
// sk orders within the partition.
package store

import (
	"context"
	"strconv"
)

// Composite key separator. Literal and reserved; owner and player ids must
// not contain it.
const keySep = "#"

// Sort keys for the two singleton records in the players collection.
const (
	ProfileSortKey  = "PROFILE"
	FeaturesSortKey = "FEATURES"
)

// PlayerKey builds the partition key "{owner}#{playerId}".
func PlayerKey(owner, playerID string) string {
	return owner + keySep + playerID
}

// TimeKey builds a time-ordered sort key "{millis}#{id}". Records sharing a
// partition sort chronologically because the timestamp leads.
func TimeKey(millis int64, id string) string {
	return strconv.FormatInt(millis, 10) + keySep + id
}

// Record is one item bound for a logical table.
type Record struct {
	PK    string
	SK    string
	Attrs Attrs
	TTL   int64 // expiry in epoch seconds; 0 means no expiry
}

// Store provides point reads and best-effort batched writes.
type Store interface {
	// Get returns the attributes of one record, or nil when absent.
	Get(ctx context.Context, table, pk, sk string) (Attrs, error)

	// PutBatch writes records and returns how many succeeded. Per-record
	// failures are logged and counted, never fatal; the returned error is
	// non-nil only when the batch as a whole could not be executed.
	PutBatch(ctx context.Context, table string, records []Record) (int, error)
}
