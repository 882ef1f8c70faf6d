// Package bot wires the Telegram transport to the dispatch registry and
// implements the command, intake, and confirmation handlers.
package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/shelfmark/shelfmark/internal/dispatch"
	"github.com/shelfmark/shelfmark/internal/models"
	"github.com/shelfmark/shelfmark/internal/requests"
	"github.com/shelfmark/shelfmark/internal/roles"
)

// API is the slice of the Telegram client the handlers use.
// *tgbotapi.BotAPI satisfies it.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// GroupDirectory is the slice of the group settings service the handlers
// use. *groups.Service satisfies it.
type GroupDirectory interface {
	Get(ctx context.Context, id int64) (models.Group, error)
	GetEnabled(ctx context.Context, id int64) (models.Group, error)
	Enable(ctx context.Context, id int64, name string) error
	Disable(ctx context.Context, id int64) error
	SetRequestLimit(ctx context.Context, id int64, limit int) error
	SetAudiobookDaysWait(ctx context.Context, id int64, days int) error
	SetEnglishAudiobookDaysWait(ctx context.Context, id int64, days int) error
	SetAllowedSources(ctx context.Context, id int64, sources []models.Source) error
	SetNoRepeatSources(ctx context.Context, id int64, sources []models.Source) error
}

// Service routes inbound updates and executes the moderation handlers.
type Service struct {
	api       API
	username  string
	registry  *dispatch.Registry
	groups    GroupDirectory
	lifecycle *requests.Lifecycle
	store     requests.Store
	roles     roles.Resolver
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewService creates the bot service and registers every handler.
// username is the bot's own username, used in deep links.
func NewService(
	log *slog.Logger,
	api API,
	username string,
	groupService GroupDirectory,
	lifecycle *requests.Lifecycle,
	store requests.Store,
	roleResolver roles.Resolver,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		api:       api,
		username:  username,
		registry:  dispatch.NewRegistry(log),
		groups:    groupService,
		lifecycle: lifecycle,
		store:     store,
		roles:     roleResolver,
		// Telegram allows ~30 messages per second overall
		limiter: rate.NewLimiter(rate.Limit(25), 5),
		logger:  log.With(slog.String("service", "bot")),
	}
	s.register()
	return s
}

// Run consumes the update channel until ctx is cancelled. Each update is
// dispatched on its own goroutine; ordering between unrelated requests is not
// guaranteed, per-key mutations are serialized by the lifecycle manager.
func (s *Service) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	s.logger.Info("update loop started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("update loop stopped")
			return
		case update, ok := <-updates:
			if !ok {
				s.logger.Info("updates channel closed")
				return
			}
			go func(update tgbotapi.Update) {
				if !s.registry.Dispatch(ctx, &update) {
					s.logger.Debug("update ignored", slog.Int("update_id", update.UpdateID))
				}
			}(update)
		}
	}
}

// Dispatch feeds one update through the registry. Exposed for tests.
func (s *Service) Dispatch(ctx context.Context, update *tgbotapi.Update) bool {
	return s.registry.Dispatch(ctx, update)
}
