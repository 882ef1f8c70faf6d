package requests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shelfmark/shelfmark/internal/models"
	"github.com/shelfmark/shelfmark/internal/quota"
)

// Audit action recorded when a request is created.
const auditActionNew = "NEW"

// Lifecycle applies status transitions and submissions, serializing mutations
// per request key and appending one audit row per action.
type Lifecycle struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[models.RequestKey]*sync.Mutex
}

// NewLifecycle creates a lifecycle manager over the given store.
func NewLifecycle(log *slog.Logger, store Store) *Lifecycle {
	if log == nil {
		log = slog.Default()
	}
	return &Lifecycle{
		store:  store,
		logger: log.With(slog.String("service", "lifecycle")),
		now:    time.Now,
		locks:  map[models.RequestKey]*sync.Mutex{},
	}
}

// keyLock returns the mutex serializing mutations of one request key.
func (l *Lifecycle) keyLock(key models.RequestKey) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	return lock
}

// SubmitResult is the outcome of a submission attempt.
type SubmitResult struct {
	Decision quota.Decision
	Request  models.Request
}

// Submit runs the quota checks and, when accepted, creates the request in
// PENDING and appends the CREATOR audit row.
//
// The quota snapshot is read before the create; concurrent submissions by the
// same user may exceed the daily cap by the number of in-flight submissions.
func (l *Lifecycle) Submit(ctx context.Context, group models.Group, sub quota.Submission, request models.Request) (SubmitResult, error) {
	snapshot, err := l.snapshot(ctx, sub)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("quota snapshot: %w", err)
	}

	decision := quota.Evaluate(snapshot, group, sub)
	if !decision.Accepted {
		return SubmitResult{Decision: decision}, nil
	}

	request.Status = models.StatusPending
	request.ResolvedDate = nil
	request.Contributor = nil
	if request.RequestDate.IsZero() {
		request.RequestDate = sub.Time
	}

	if err := l.store.Create(ctx, request); err != nil {
		return SubmitResult{}, fmt.Errorf("create request: %w", err)
	}
	l.appendAudit(ctx, request.Key, sub.UserID, models.AuditCreator, auditActionNew, sub.Time)

	l.logger.Info("request created",
		slog.Int64("group", request.Key.GroupID),
		slog.Int64("message", request.Key.MessageID),
		slog.Int64("user", sub.UserID),
	)
	return SubmitResult{Decision: decision, Request: request}, nil
}

func (l *Lifecycle) snapshot(ctx context.Context, sub quota.Submission) (quota.Snapshot, error) {
	createdToday, err := l.store.CountCreatedSince(ctx, sub.UserID, sub.GroupID, quota.StartOfDay(sub.Time))
	if err != nil {
		return quota.Snapshot{}, err
	}
	last, err := l.store.LastAudiobook(ctx, sub.UserID, sub.GroupID)
	if err != nil {
		return quota.Snapshot{}, err
	}
	duplicate := false
	if sub.Link != "" {
		duplicate, err = l.store.OpenDuplicateExists(ctx, sub.GroupID, sub.Link)
		if err != nil {
			return quota.Snapshot{}, err
		}
	}
	return quota.Snapshot{
		CreatedToday:  createdToday,
		LastAudiobook: last,
		DuplicateOpen: duplicate,
	}, nil
}

// Transition sets the request to newStatus, keeping the resolved-date and
// contributor invariants, and appends an audit row. It returns false (with no
// mutation and no audit row) only when the request does not exist. Setting
// the current status again is a stored-state no-op but still audited.
func (l *Lifecycle) Transition(ctx context.Context, key models.RequestKey, newStatus models.Status, actorID int64, role models.AuditRole) (bool, error) {
	lock := l.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	ok, err := l.transitionLocked(ctx, key, newStatus, actorID)
	if errors.Is(err, ErrConflict) {
		// lost a race against the store; retry once
		ok, err = l.transitionLocked(ctx, key, newStatus, actorID)
	}
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	l.appendAudit(ctx, key, actorID, role, string(newStatus), l.now())
	return true, nil
}

func (l *Lifecycle) transitionLocked(ctx context.Context, key models.RequestKey, newStatus models.Status, actorID int64) (bool, error) {
	request, err := l.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load request: %w", err)
	}

	request.Status = newStatus
	if newStatus == models.StatusResolved {
		resolved := l.now()
		request.ResolvedDate = &resolved
		request.Contributor = &actorID
	} else {
		request.ResolvedDate = nil
		request.Contributor = nil
	}

	if err := l.store.Update(ctx, request); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("update request: %w", err)
	}
	return true, nil
}

// Delete hard-deletes the request, returning false when it does not exist.
// Audit rows are retained so history and quota counting survive removal.
func (l *Lifecycle) Delete(ctx context.Context, key models.RequestKey, actorID int64) (bool, error) {
	lock := l.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	err := l.store.Delete(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete request: %w", err)
	}

	l.appendAudit(ctx, key, actorID, models.AuditContributor, string(models.ActionRemove), l.now())
	l.logger.Info("request removed",
		slog.Int64("group", key.GroupID),
		slog.Int64("message", key.MessageID),
	)
	return true, nil
}

// Update replaces the content fields of an existing request after its source
// message was edited by the creator. Lifecycle fields are untouched.
func (l *Lifecycle) Update(ctx context.Context, key models.RequestKey, link, content string, format models.Format, source models.Source, otherTags string) (bool, error) {
	lock := l.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	request, err := l.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load request: %w", err)
	}

	request.Link = link
	request.Content = content
	request.Format = format
	request.Source = source
	request.OtherTags = otherTags

	if err := l.store.Update(ctx, request); err != nil {
		return false, fmt.Errorf("update request: %w", err)
	}
	return true, nil
}

// appendAudit writes the audit row for an already-applied action. A failed
// append is logged, not surfaced: the mutation has happened and the log is
// best-effort by then.
func (l *Lifecycle) appendAudit(ctx context.Context, key models.RequestKey, userID int64, role models.AuditRole, action string, at time.Time) {
	row := models.UserRequest{
		ID:      uuid.NewString(),
		UserID:  userID,
		Request: key,
		Role:    role,
		Action:  action,
		Date:    at,
	}
	if err := l.store.AppendAudit(ctx, row); err != nil {
		l.logger.Error("audit append failed",
			slog.Int64("group", key.GroupID),
			slog.Int64("message", key.MessageID),
			slog.Any("error", err),
		)
	}
}
