// Package digest posts a scheduled summary of open requests to each tracked
// group.
package digest

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"

	"github.com/shelfmark/shelfmark/internal/models"
	"github.com/shelfmark/shelfmark/internal/requests"
)

// Sender delivers messages to Telegram. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// GroupLister names the groups the digest covers.
type GroupLister interface {
	ListEnabled(ctx context.Context) ([]models.Group, error)
}

// Service runs the digest on a cron schedule.
type Service struct {
	cron    *cron.Cron
	pattern string
	sender  Sender
	groups  GroupLister
	store   requests.Store
	logger  *slog.Logger
}

// NewService creates the digest scheduler. It does not start the cron.
func NewService(log *slog.Logger, pattern string, sender Sender, groups GroupLister, store requests.Store) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cron:    cron.New(),
		pattern: pattern,
		sender:  sender,
		groups:  groups,
		store:   store,
		logger:  log.With(slog.String("service", "digest")),
	}
}

// Start schedules the digest job and starts the cron.
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(s.pattern, func() {
		s.Run(context.Background())
	})
	if err != nil {
		return fmt.Errorf("invalid digest pattern %q: %w", s.pattern, err)
	}
	s.cron.Start()
	s.logger.Info("digest scheduled", slog.String("pattern", s.pattern))
	return nil
}

// Stop halts the cron and waits for a running job to finish.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}

// Run posts the summary once for every tracked group. Failures are logged
// per group; one broken group never blocks the rest.
func (s *Service) Run(ctx context.Context) {
	groups, err := s.groups.ListEnabled(ctx)
	if err != nil {
		s.logger.Error("list groups failed", slog.Any("error", err))
		return
	}

	for _, group := range groups {
		if err := s.post(ctx, group); err != nil {
			s.logger.Error("digest failed",
				slog.Int64("group", group.ID),
				slog.Any("error", err),
			)
		}
	}
}

func (s *Service) post(ctx context.Context, group models.Group) error {
	counts, err := requests.FoldStatusCounts(ctx, s.store, group.ID)
	if err != nil {
		return err
	}
	if counts.Pending == 0 && counts.Paused == 0 {
		return nil
	}

	text := fmt.Sprintf("<b>Open requests</b>\nPending: %d\nPaused: %d\nResolved so far: %d",
		counts.Pending, counts.Paused, counts.Resolved)
	msg := tgbotapi.NewMessage(group.ID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	_, err = s.sender.Send(msg)
	return err
}
