// Package types holds the persisted domain model. Every record is stored as
// one pretty-printed JSON object per key; the JSON field names here are the
// wire format.
package types

import "time"

// Base carries the fields shared by all stored entities. IDs are opaque,
// generated by the owning repository, never caller-supplied.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Base) RecordID() string      { return b.ID }
func (b *Base) SetRecordID(id string) { b.ID = id }

// StampNew sets both timestamps on first persist.
func (b *Base) StampNew(now time.Time) {
	b.CreatedAt = now
	b.UpdatedAt = now
}

// StampUpdated refreshes the update timestamp.
func (b *Base) StampUpdated(now time.Time) {
	b.UpdatedAt = now
}

// Record is the contract the generic repository requires of an entity.
type Record interface {
	RecordID() string
	SetRecordID(id string)
	StampNew(now time.Time)
	StampUpdated(now time.Time)
}
