package digest

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/models"
	"github.com/shelfmark/shelfmark/internal/requests"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

type fakeGroups struct {
	groups []models.Group
}

func (f *fakeGroups) ListEnabled(_ context.Context) ([]models.Group, error) {
	return f.groups, nil
}

func seed(t *testing.T, store *requests.MemStore, groupID, messageID int64, status models.Status) {
	t.Helper()
	err := store.Create(context.Background(), models.Request{
		Key:         models.RequestKey{MessageID: messageID, GroupID: groupID},
		UserID:      1,
		Status:      status,
		Format:      models.FormatEbook,
		Source:      models.SourceAmazon,
		Link:        "https://example.com/book",
		RequestDate: time.Now(),
	})
	require.NoError(t, err)
}

func TestRunPostsSummaryPerGroup(t *testing.T) {
	t.Parallel()

	store := requests.NewMemStore()
	seed(t, store, -100, 1, models.StatusPending)
	seed(t, store, -100, 2, models.StatusPending)
	seed(t, store, -100, 3, models.StatusPaused)
	seed(t, store, -100, 4, models.StatusResolved)
	seed(t, store, -200, 5, models.StatusPending)

	sender := &fakeSender{}
	groups := &fakeGroups{groups: []models.Group{{ID: -100}, {ID: -200}}}

	svc := NewService(nil, "0 8 * * *", sender, groups, store)
	svc.Run(context.Background())

	require.Len(t, sender.sent, 2)
	assert.Equal(t, int64(-100), sender.sent[0].ChatID)
	assert.Equal(t, "<b>Open requests</b>\nPending: 2\nPaused: 1\nResolved so far: 1", sender.sent[0].Text)
	assert.Equal(t, tgbotapi.ModeHTML, sender.sent[0].ParseMode)
	assert.Equal(t, int64(-200), sender.sent[1].ChatID)
	assert.Equal(t, "<b>Open requests</b>\nPending: 1\nPaused: 0\nResolved so far: 0", sender.sent[1].Text)
}

func TestRunSkipsGroupsWithNothingOpen(t *testing.T) {
	t.Parallel()

	store := requests.NewMemStore()
	seed(t, store, -100, 1, models.StatusResolved)
	seed(t, store, -100, 2, models.StatusCancelled)

	sender := &fakeSender{}
	groups := &fakeGroups{groups: []models.Group{{ID: -100}}}

	svc := NewService(nil, "0 8 * * *", sender, groups, store)
	svc.Run(context.Background())

	assert.Empty(t, sender.sent)
}

func TestStartRejectsInvalidPattern(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, "not a cron pattern", &fakeSender{}, &fakeGroups{}, requests.NewMemStore())
	assert.Error(t, svc.Start())
}
