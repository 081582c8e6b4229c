// Package syncengine implements the pull/push reconciliation protocol
// that lets disconnected clients and the server exchange tournament
// state: FatLog bundles a log tail with enough entity snapshots that
// replaying it reconstructs the affected entities without further
// lookups.
package syncengine

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"tournament-engine/internal/changelog"
	"tournament-engine/internal/entities"
)

// EntityEntry is the current state (or tombstone) of one entity
// touched by a FatLog's log tail, along with its full version history
// within that tail.
type EntityEntry struct {
	UUID           uuid.UUID       `json:"uuid"`
	CurrentVersion uuid.UUID       `json:"current_version"`
	OldVersions    []uuid.UUID     `json:"old_versions"`
	Exists         bool            `json:"exists"`
	Value          entities.Entity `json:"current_value,omitempty"`
}

// FatLog is a self-contained log tail: the raw LogEntry sequence plus,
// for every (type, id) the tail touches, its current value or
// tombstone. Replaying a FatLog against an empty store reconstructs
// every entity it names.
type FatLog struct {
	Log      []changelog.LogEntry                  `json:"log"`
	Entities map[entities.EntityType][]EntityEntry `json:"entities"`
}

// Tip returns the version of the last log entry in the tail, or nil if
// the tail is empty.
func (f *FatLog) Tip() *uuid.UUID {
	if len(f.Log) == 0 {
		return nil
	}
	v := f.Log[len(f.Log)-1].Version
	return &v
}

// IsEmpty reports whether the tail carries no entries.
func (f *FatLog) IsEmpty() bool { return len(f.Log) == 0 }

// entityEntryWire is EntityEntry's wire shape: Value travels as raw
// JSON so it can be decoded against the entity kind its own array key
// names, the same type-directed construction MySQLStore uses.
type entityEntryWire struct {
	UUID           uuid.UUID       `json:"uuid"`
	CurrentVersion uuid.UUID       `json:"current_version"`
	OldVersions    []uuid.UUID     `json:"old_versions"`
	Exists         bool            `json:"exists"`
	Value          json.RawMessage `json:"current_value,omitempty"`
}

// MarshalJSON renders FatLog with entity snapshots as raw JSON bodies
// so a decoder on the other side of the wire can reconstruct each
// entity by its declared kind.
func (f *FatLog) MarshalJSON() ([]byte, error) {
	wire := struct {
		Log      []changelog.LogEntry                      `json:"log"`
		Entities map[entities.EntityType][]entityEntryWire `json:"entities"`
	}{Log: f.Log, Entities: make(map[entities.EntityType][]entityEntryWire, len(f.Entities))}

	for t, entries := range f.Entities {
		out := make([]entityEntryWire, len(entries))
		for i, ee := range entries {
			w := entityEntryWire{
				UUID:           ee.UUID,
				CurrentVersion: ee.CurrentVersion,
				OldVersions:    ee.OldVersions,
				Exists:         ee.Exists,
			}
			if ee.Exists && ee.Value != nil {
				body, err := json.Marshal(ee.Value)
				if err != nil {
					return nil, err
				}
				w.Value = body
			}
			out[i] = w
		}
		wire.Entities[t] = out
	}
	return json.Marshal(wire)
}

// UnmarshalJSON reconstructs FatLog, decoding each entity snapshot
// against the concrete Go type its array's entity-type key names.
func (f *FatLog) UnmarshalJSON(data []byte) error {
	var wire struct {
		Log      []changelog.LogEntry                      `json:"log"`
		Entities map[entities.EntityType][]entityEntryWire `json:"entities"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	f.Log = wire.Log
	f.Entities = make(map[entities.EntityType][]EntityEntry, len(wire.Entities))
	for t, entries := range wire.Entities {
		out := make([]EntityEntry, len(entries))
		for i, w := range entries {
			ee := EntityEntry{
				UUID:           w.UUID,
				CurrentVersion: w.CurrentVersion,
				OldVersions:    w.OldVersions,
				Exists:         w.Exists,
			}
			if w.Exists && len(w.Value) > 0 {
				val, err := entities.DecodeEntity(t, w.Value)
				if err != nil {
					return err
				}
				ee.Value = val
			}
			out[i] = ee
		}
		f.Entities[t] = out
	}
	return nil
}

// SyncRequest is the POST body for pushing a client's tail to the
// server.
type SyncRequest struct {
	Log                FatLog     `json:"log"`
	LastCommonAncestor *uuid.UUID `json:"last_common_ancestor,omitempty"`
}

// OutcomeKind discriminates SyncRequestResponse.Outcome.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeReject  OutcomeKind = "reject"
)

// SyncRequestResponse is the response body for a push.
type SyncRequestResponse struct {
	Outcome               OutcomeKind `json:"outcome"`
	NewLastCommonAncestor *uuid.UUID  `json:"new_last_common_ancestor,omitempty"`
	RejectReason          string      `json:"reject_reason,omitempty"`
	// MergedGroup is populated only when reconciliation produced a
	// merge batch (outcome step 2). It is never serialized, so only an
	// in-process caller sees it, and the view cache can be updated
	// without a further query.
	MergedGroup *changelog.EntityGroup `json:"-"`
}

func successResponse(newTip uuid.UUID, merged *changelog.EntityGroup) SyncRequestResponse {
	return SyncRequestResponse{Outcome: OutcomeSuccess, NewLastCommonAncestor: &newTip, MergedGroup: merged}
}

func rejectResponse(reason string) SyncRequestResponse {
	return SyncRequestResponse{Outcome: OutcomeReject, RejectReason: reason}
}

// nowUTC is overridable by tests.
var nowUTC = func() time.Time { return time.Now().UTC() }
