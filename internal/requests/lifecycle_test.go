package requests

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/models"
	"github.com/shelfmark/shelfmark/internal/quota"
)

var testGroup = models.Group{
	ID:                       -100,
	Name:                     "readers",
	RequestLimitPerDay:       2,
	AudiobookDaysWait:        7,
	EnglishAudiobookDaysWait: 3,
	NoRepeatSources:          []models.Source{models.SourceAudible},
	Enabled:                  true,
}

func newLifecycle(t *testing.T) (*Lifecycle, *MemStore) {
	t.Helper()
	store := NewMemStore()
	return NewLifecycle(nil, store), store
}

func submitOne(t *testing.T, lc *Lifecycle, messageID int64, at time.Time) SubmitResult {
	t.Helper()
	sub := quota.Submission{
		UserID:  7,
		GroupID: testGroup.ID,
		Format:  models.FormatEbook,
		Source:  models.SourceAmazon,
		Link:    "https://example.com/book",
		Time:    at,
	}
	result, err := lc.Submit(context.Background(), testGroup, sub, models.Request{
		Key:     models.RequestKey{MessageID: messageID, GroupID: testGroup.ID},
		UserID:  sub.UserID,
		Format:  sub.Format,
		Source:  sub.Source,
		Link:    sub.Link + "/" + time.Now().String(),
		Content: "book please",
	})
	require.NoError(t, err)
	return result
}

func TestSubmitCreatesPendingWithAudit(t *testing.T) {
	t.Parallel()

	lc, store := newLifecycle(t)
	at := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)

	result := submitOne(t, lc, 1, at)
	require.True(t, result.Decision.Accepted)
	assert.Equal(t, models.StatusPending, result.Request.Status)

	rows := store.AuditRows(result.Request.Key)
	require.Len(t, rows, 1)
	assert.Equal(t, models.AuditCreator, rows[0].Role)
	assert.Equal(t, auditActionNew, rows[0].Action)
}

func TestSubmitDailyLimit(t *testing.T) {
	t.Parallel()

	lc, _ := newLifecycle(t)
	at := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)

	require.True(t, submitOne(t, lc, 1, at).Decision.Accepted)
	require.True(t, submitOne(t, lc, 2, at.Add(time.Hour)).Decision.Accepted)

	third := submitOne(t, lc, 3, at.Add(2*time.Hour))
	assert.False(t, third.Decision.Accepted)
	assert.Equal(t, quota.ReasonDailyLimit, third.Decision.Reason)

	// next day the counter resets
	fourth := submitOne(t, lc, 4, at.AddDate(0, 0, 1))
	assert.True(t, fourth.Decision.Accepted)
}

func TestSubmitAudiobookCooldown(t *testing.T) {
	t.Parallel()

	lc, _ := newLifecycle(t)
	first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	sub := quota.Submission{
		UserID:  7,
		GroupID: testGroup.ID,
		Format:  models.FormatAudiobook,
		Source:  models.SourceAmazon,
		Time:    first,
	}
	result, err := lc.Submit(context.Background(), testGroup, sub, models.Request{
		Key:    models.RequestKey{MessageID: 1, GroupID: testGroup.ID},
		UserID: 7,
		Format: models.FormatAudiobook,
	})
	require.NoError(t, err)
	require.True(t, result.Decision.Accepted)

	// 3 days later, wait is 7: rejected with retry 4 days out
	sub.Time = first.AddDate(0, 0, 3)
	result, err = lc.Submit(context.Background(), testGroup, sub, models.Request{
		Key:    models.RequestKey{MessageID: 2, GroupID: testGroup.ID},
		UserID: 7,
		Format: models.FormatAudiobook,
	})
	require.NoError(t, err)
	assert.False(t, result.Decision.Accepted)
	assert.Equal(t, quota.ReasonCooldown, result.Decision.Reason)
	assert.Equal(t, sub.Time.AddDate(0, 0, 4), result.Decision.RetryAt)
}

func TestSubmitDuplicateLink(t *testing.T) {
	t.Parallel()

	lc, _ := newLifecycle(t)
	at := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)

	sub := quota.Submission{
		UserID:  7,
		GroupID: testGroup.ID,
		Format:  models.FormatEbook,
		Source:  models.SourceAudible,
		Link:    "https://audible.example/42",
		Time:    at,
	}
	result, err := lc.Submit(context.Background(), testGroup, sub, models.Request{
		Key:    models.RequestKey{MessageID: 1, GroupID: testGroup.ID},
		UserID: 7,
		Format: sub.Format,
		Source: sub.Source,
		Link:   sub.Link,
	})
	require.NoError(t, err)
	require.True(t, result.Decision.Accepted)

	// another user, same link, source in the no-repeat set
	sub.UserID = 8
	result, err = lc.Submit(context.Background(), testGroup, sub, models.Request{
		Key:    models.RequestKey{MessageID: 2, GroupID: testGroup.ID},
		UserID: 8,
		Format: sub.Format,
		Source: sub.Source,
		Link:   sub.Link,
	})
	require.NoError(t, err)
	assert.False(t, result.Decision.Accepted)
	assert.Equal(t, quota.ReasonDuplicate, result.Decision.Reason)
}

func TestTransitionMissingRequest(t *testing.T) {
	t.Parallel()

	lc, store := newLifecycle(t)
	key := models.RequestKey{MessageID: 999, GroupID: 1}

	ok, err := lc.Transition(context.Background(), key, models.StatusResolved, 5, models.AuditContributor)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, store.AuditRows(key))

	ok, err = lc.Delete(context.Background(), key, 5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, store.AuditRows(key))
}

func TestTransitionIdempotentWithTwoAuditRows(t *testing.T) {
	t.Parallel()

	lc, store := newLifecycle(t)
	at := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)
	key := submitOne(t, lc, 1, at).Request.Key

	for i := 0; i < 2; i++ {
		ok, err := lc.Transition(context.Background(), key, models.StatusPaused, 5, models.AuditContributor)
		require.NoError(t, err)
		require.True(t, ok)
	}

	request, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaused, request.Status)
	// one CREATOR row from submit plus one row per transition
	assert.Len(t, store.AuditRows(key), 3)
}

func TestResolvedDateInvariantOverRandomSequences(t *testing.T) {
	t.Parallel()

	lc, store := newLifecycle(t)
	at := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)
	key := submitOne(t, lc, 1, at).Request.Key

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		status := models.Statuses[rng.Intn(len(models.Statuses))]
		ok, err := lc.Transition(context.Background(), key, status, 5, models.AuditContributor)
		require.NoError(t, err)
		require.True(t, ok)

		request, err := store.Get(context.Background(), key)
		require.NoError(t, err)
		if request.Status == models.StatusResolved {
			assert.NotNil(t, request.ResolvedDate)
			assert.NotNil(t, request.Contributor)
		} else {
			assert.Nil(t, request.ResolvedDate)
			assert.Nil(t, request.Contributor)
		}
	}
}

func TestConcurrentIdenticalTransitions(t *testing.T) {
	t.Parallel()

	lc, store := newLifecycle(t)
	at := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)
	key := submitOne(t, lc, 1, at).Request.Key

	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := lc.Transition(context.Background(), key, models.StatusResolved, int64(i), models.AuditContributor)
			assert.NoError(t, err)
			results[i] = ok
		}(i)
	}
	wg.Wait()

	for _, ok := range results {
		assert.True(t, ok)
	}
	request, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, request.Status)
	// idempotent for state, not for audit volume
	assert.Len(t, store.AuditRows(key), 1+len(results))
}

func TestDeleteKeepsAuditRows(t *testing.T) {
	t.Parallel()

	lc, store := newLifecycle(t)
	at := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)
	key := submitOne(t, lc, 1, at).Request.Key

	ok, err := lc.Delete(context.Background(), key, 5)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = store.Get(context.Background(), key)
	assert.ErrorIs(t, err, ErrNotFound)
	// CREATOR row plus the REMOVE row survive the hard delete
	assert.Len(t, store.AuditRows(key), 2)

	count, err := store.CountCreatedSince(context.Background(), 7, testGroup.ID, quota.StartOfDay(at))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFoldStatusCounts(t *testing.T) {
	t.Parallel()

	lc, store := newLifecycle(t)
	base := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)

	// limit is per user; use distinct users to avoid quota rejections
	for i := int64(1); i <= 5; i++ {
		sub := quota.Submission{UserID: 100 + i, GroupID: testGroup.ID, Format: models.FormatEbook, Time: base}
		result, err := lc.Submit(context.Background(), testGroup, sub, models.Request{
			Key:    models.RequestKey{MessageID: i, GroupID: testGroup.ID},
			UserID: sub.UserID,
			Format: sub.Format,
		})
		require.NoError(t, err)
		require.True(t, result.Decision.Accepted)
	}
	_, err := lc.Transition(context.Background(), models.RequestKey{MessageID: 1, GroupID: testGroup.ID}, models.StatusResolved, 5, models.AuditContributor)
	require.NoError(t, err)
	_, err = lc.Transition(context.Background(), models.RequestKey{MessageID: 2, GroupID: testGroup.ID}, models.StatusPaused, 5, models.AuditContributor)
	require.NoError(t, err)

	counts, err := FoldStatusCounts(context.Background(), store, testGroup.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCounts{Pending: 3, Paused: 1, Resolved: 1}, counts)
	assert.Equal(t, 5, counts.Total())
}
