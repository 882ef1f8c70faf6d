// Package dispatch routes inbound Telegram updates to the first registered
// handler whose whole condition set passes.
package dispatch

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Condition is an atomic boolean test over an inbound update. Conditions must
// be side-effect free; only handlers mutate state.
type Condition func(ctx context.Context, update *tgbotapi.Update) bool

// Handler processes an update that matched a registration.
type Handler func(ctx context.Context, update *tgbotapi.Update)

type registration struct {
	conditions []Condition
	handler    Handler
}

// Registry is an ordered list of (condition set, handler) registrations.
// Registration order encodes priority: on dispatch the first registration
// whose every condition passes wins, and at most one handler runs per update.
type Registry struct {
	logger        *slog.Logger
	registrations []registration
}

// NewRegistry creates an empty dispatch registry.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{logger: log.With(slog.String("service", "dispatch"))}
}

// Register appends a registration. Conditions are evaluated in the given
// order with short-circuit AND semantics.
func (r *Registry) Register(handler Handler, conditions ...Condition) {
	r.registrations = append(r.registrations, registration{
		conditions: conditions,
		handler:    handler,
	})
}

// Dispatch evaluates registrations in order and runs the first full match.
// It reports whether any handler ran; an update matching nothing is ignored.
func (r *Registry) Dispatch(ctx context.Context, update *tgbotapi.Update) bool {
	for i, reg := range r.registrations {
		if !matches(ctx, reg.conditions, update) {
			continue
		}
		r.logger.Debug("update matched", slog.Int("registration", i), slog.Int("update_id", update.UpdateID))
		reg.handler(ctx, update)
		return true
	}
	return false
}

func matches(ctx context.Context, conditions []Condition, update *tgbotapi.Update) bool {
	for _, condition := range conditions {
		if !condition(ctx, update) {
			return false
		}
	}
	return true
}
