// Package outbox buffers persistence writes that failed so they can be
// replayed once the database accepts them again.
package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/goaltrack/internal/store"
)

// Item kinds.
const (
	KindSnapshotCreate = "snapshot.create"
	KindRecordUpdate   = "record.update"
)

// Item is a persistence write that failed and should be replayed.
type Item struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`

	bucketKey []byte
}

type recordUpdate struct {
	RecordID string            `json:"record_id"`
	Patch    store.RecordPatch `json:"patch"`
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}

// SnapshotItem wraps a snapshot write.
func SnapshotItem(s store.NewSnapshot) (Item, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return Item{}, err
	}
	return Item{Kind: KindSnapshotCreate, Payload: payload}, nil
}

// RecordUpdateItem wraps a record patch.
func RecordUpdateItem(recordID string, p store.RecordPatch) (Item, error) {
	payload, err := json.Marshal(recordUpdate{RecordID: recordID, Patch: p})
	if err != nil {
		return Item{}, err
	}
	return Item{Kind: KindRecordUpdate, Payload: payload}, nil
}
