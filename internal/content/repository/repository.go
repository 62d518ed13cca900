package repository

import (
	"context"
	"errors"

	"github.com/memoryvista/memoryvista/backend/go-services/internal/content"
)

var (
	ErrNotFound = errors.New("content item not found")
	// ErrConflict means the stored revision no longer matches the one the caller read.
	ErrConflict = errors.New("content item was modified concurrently")
)

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	UniversityID string
	ProfileID    string
	Status       content.Status
}

func (f Filter) matches(it *content.Item) bool {
	if f.UniversityID != "" && it.UniversityID != f.UniversityID {
		return false
	}
	if f.ProfileID != "" && it.ProfileID != f.ProfileID {
		return false
	}
	if f.Status != "" && it.Status != f.Status {
		return false
	}
	return true
}

// Repository is the document store collaborator of the workflow. There is no
// generic status setter: every status write goes through ApplyChange with a revision guard.
type Repository interface {
	Create(ctx context.Context, it *content.Item) (string, error)
	Get(ctx context.Context, id string) (*content.Item, error)
	List(ctx context.Context, f Filter) ([]*content.Item, error)
	// ApplyChange atomically applies ch if the stored revision equals expectedRevision.
	// Returns ErrConflict when it does not and ErrNotFound when the item is gone.
	ApplyChange(ctx context.Context, id string, expectedRevision int64, ch content.Change) (*content.Item, error)
	Ping(ctx context.Context) error
}
