package store

import (
	"context"

	"taskbot/model"
)

// TaskStore maps channel IDs to task records. Implementations must make
// every method atomic: a concurrent reader never observes a half-applied
// mutation.
type TaskStore interface {
	// Create stores a new record. Returns model.ErrDuplicateChannel if the
	// channel already has one, model.ErrInvalidUserLimit if the limit is
	// not positive.
	Create(ctx context.Context, rec *model.TaskRecord) error

	// Get returns a copy of the record, or model.ErrNotFound.
	Get(ctx context.Context, channelID string) (*model.TaskRecord, error)

	// Remove deletes the record. Removing an absent record is not an error.
	Remove(ctx context.Context, channelID string) error

	// Mutate applies fn to the record as a single atomic read-modify-write
	// and returns the updated copy. If fn returns an error the record is
	// left unchanged and the error is returned. Returns model.ErrNotFound
	// if the channel has no record.
	Mutate(ctx context.Context, channelID string, fn func(*model.TaskRecord) error) (*model.TaskRecord, error)
}
