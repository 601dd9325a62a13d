/*
Package index implements the per-identity encrypted index: a
denormalized view over every secret's current metadata, kept up to
date by incrementally applying the suffixes of change logs this index
has not yet processed, and queried through a fuzzy-scored list filter.
*/
package index

import (
	"encoding/json"
	"time"

	"github.com/trustless-go/trustless/pkg/blockstore"
	"github.com/trustless-go/trustless/pkg/vault"
)

// Entry is the denormalized record kept per secret_id.
type Entry struct {
	CurrentBlockID string           `json:"current_block_id"`
	BlockIDs       []string         `json:"block_ids"`
	Name           string           `json:"name"`
	Type           vault.SecretType `json:"type"`
	Tags           []string         `json:"tags,omitempty"`
	URLs           []string         `json:"urls,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
	Deleted        bool             `json:"deleted"`
}

// Data is the index's serialized form.
type Data struct {
	Heads   map[string]blockstore.Change `json:"heads"`
	Entries map[string]Entry            `json:"entries"`
}

// Engine holds one identity's index and applies change-log deltas to
// it.
type Engine struct {
	Data Data
}

// New returns an empty Engine, as used for an identity that has never
// had an index block stored.
func New() *Engine {
	return &Engine{Data: Data{Heads: map[string]blockstore.Change{}, Entries: map[string]Entry{}}}
}

// Load deserializes a previously stored index block's plaintext.
func Load(raw []byte) (*Engine, error) {
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	if d.Heads == nil {
		d.Heads = map[string]blockstore.Change{}
	}
	if d.Entries == nil {
		d.Entries = map[string]Entry{}
	}
	return &Engine{Data: d}, nil
}

// Bytes serializes the index for encryption and storage.
func (e *Engine) Bytes() ([]byte, error) {
	return json.Marshal(e.Data)
}

// Entry returns the denormalized entry for secretID, if known.
func (e *Engine) Entry(secretID string) (Entry, bool) {
	entry, ok := e.Data.Entries[secretID]
	return entry, ok
}
