// Package requests persists tracked requests and applies lifecycle changes.
package requests

import (
	"context"
	"errors"
	"time"

	"github.com/shelfmark/shelfmark/internal/models"
	"github.com/shelfmark/shelfmark/internal/quota"
)

// Errors returned by request stores.
var (
	ErrNotFound = errors.New("request not found")
	ErrConflict = errors.New("request already exists")
)

// ListFilter narrows List results. A zero GroupID means all groups.
type ListFilter struct {
	GroupID    int64
	Status     models.Status
	Format     models.Format
	Source     models.Source
	Descending bool
}

// Store is the keyed persistence collaborator for requests and their
// append-only audit log. Implementations carry their own timeout and retry
// policy; the lifecycle manager treats failures as collaborator faults.
type Store interface {
	Get(ctx context.Context, key models.RequestKey) (models.Request, error)
	Create(ctx context.Context, request models.Request) error
	Update(ctx context.Context, request models.Request) error
	Delete(ctx context.Context, key models.RequestKey) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]models.Request, error)

	AppendAudit(ctx context.Context, row models.UserRequest) error

	// Quota snapshot reads.
	CountCreatedSince(ctx context.Context, userID, groupID int64, since time.Time) (int, error)
	LastAudiobook(ctx context.Context, userID, groupID int64) (*quota.LastRequest, error)
	OpenDuplicateExists(ctx context.Context, groupID int64, link string) (bool, error)
}

// StatusCounts accumulates request counts per status during a paginated fold.
type StatusCounts struct {
	Pending   int
	Paused    int
	Resolved  int
	Cancelled int
}

// Add records one request in the accumulator.
func (c *StatusCounts) Add(status models.Status) {
	switch status {
	case models.StatusPending:
		c.Pending++
	case models.StatusPaused:
		c.Paused++
	case models.StatusResolved:
		c.Resolved++
	case models.StatusCancelled:
		c.Cancelled++
	}
}

// Total is the number of requests seen by the accumulator.
func (c StatusCounts) Total() int {
	return c.Pending + c.Paused + c.Resolved + c.Cancelled
}

// FoldStatusCounts pages through every request in a group and folds the
// statuses into an accumulator.
func FoldStatusCounts(ctx context.Context, store Store, groupID int64) (StatusCounts, error) {
	const pageSize = 200

	var counts StatusCounts
	for offset := 0; ; offset += pageSize {
		page, err := store.List(ctx, ListFilter{GroupID: groupID}, pageSize, offset)
		if err != nil {
			return StatusCounts{}, err
		}
		for _, request := range page {
			counts.Add(request.Status)
		}
		if len(page) < pageSize {
			return counts, nil
		}
	}
}
