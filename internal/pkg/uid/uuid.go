package uid

import "github.com/google/uuid"

// UUID produces time-ordered v7 UUIDs so event and message IDs sort by
// creation time.
type UUID struct{}

func NewUUID() UUID { return UUID{} }

func (UUID) Generate() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	// NewV7 only fails when the random source does; v4 reads the same
	// source but panics instead, which is the better outcome for an ID.
	return uuid.New().String()
}
