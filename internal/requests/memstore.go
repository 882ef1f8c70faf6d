package requests

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shelfmark/shelfmark/internal/models"
	"github.com/shelfmark/shelfmark/internal/quota"
)

// MemStore is an in-memory Store used in tests and for running without a
// database. Mutations are guarded by a single RWMutex; the per-key
// serialization the lifecycle manager needs sits above it.
type MemStore struct {
	mu       sync.RWMutex
	requests map[models.RequestKey]models.Request
	audit    []models.UserRequest
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{requests: map[models.RequestKey]models.Request{}}
}

func (s *MemStore) Get(_ context.Context, key models.RequestKey) (models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.requests[key]
	if !ok {
		return models.Request{}, ErrNotFound
	}
	return request, nil
}

func (s *MemStore) Create(_ context.Context, request models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[request.Key]; ok {
		return ErrConflict
	}
	s.requests[request.Key] = request
	return nil
}

func (s *MemStore) Update(_ context.Context, request models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[request.Key]; !ok {
		return ErrNotFound
	}
	s.requests[request.Key] = request
	return nil
}

func (s *MemStore) Delete(_ context.Context, key models.RequestKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[key]; !ok {
		return ErrNotFound
	}
	delete(s.requests, key)
	return nil
}

func (s *MemStore) List(_ context.Context, filter ListFilter, limit, offset int) ([]models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []models.Request
	for _, request := range s.requests {
		if filter.GroupID != 0 && request.Key.GroupID != filter.GroupID {
			continue
		}
		if filter.Status != "" && request.Status != filter.Status {
			continue
		}
		if filter.Format != "" && request.Format != filter.Format {
			continue
		}
		if filter.Source != "" && request.Source != filter.Source {
			continue
		}
		matches = append(matches, request)
	}
	sort.Slice(matches, func(i, j int) bool {
		if filter.Descending {
			return matches[i].RequestDate.After(matches[j].RequestDate)
		}
		return matches[i].RequestDate.Before(matches[j].RequestDate)
	})

	if offset >= len(matches) {
		return nil, nil
	}
	matches = matches[offset:]
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *MemStore) AppendAudit(_ context.Context, row models.UserRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, row)
	return nil
}

// AuditRows returns a copy of the audit rows for a request key, in append order.
func (s *MemStore) AuditRows(key models.RequestKey) []models.UserRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []models.UserRequest
	for _, row := range s.audit {
		if row.Request == key {
			rows = append(rows, row)
		}
	}
	return rows
}

func (s *MemStore) CountCreatedSince(_ context.Context, userID, groupID int64, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, row := range s.audit {
		if row.UserID == userID && row.Request.GroupID == groupID &&
			row.Role == models.AuditCreator && !row.Date.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *MemStore) LastAudiobook(_ context.Context, userID, groupID int64) (*quota.LastRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *quota.LastRequest
	for _, row := range s.audit {
		if row.UserID != userID || row.Request.GroupID != groupID || row.Role != models.AuditCreator {
			continue
		}
		request, ok := s.requests[row.Request]
		if !ok || request.Format != models.FormatAudiobook {
			continue
		}
		if last == nil || row.Date.After(last.Date) {
			last = &quota.LastRequest{Date: row.Date, OtherTags: request.OtherTags}
		}
	}
	return last, nil
}

func (s *MemStore) OpenDuplicateExists(_ context.Context, groupID int64, link string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, request := range s.requests {
		if request.Key.GroupID != groupID || request.Link != link {
			continue
		}
		if request.Status == models.StatusPending || request.Status == models.StatusPaused {
			return true, nil
		}
	}
	return false, nil
}
