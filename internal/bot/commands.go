package bot

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shelfmark/shelfmark/internal/models"
)

// Contributor command surface.
const (
	commandShow       = "/show"
	commandPending    = "/pending"
	commandPause      = "/pause"
	commandCancel     = "/cancel"
	commandRemove     = "/remove"
	commandDone       = "/done"
	commandSilentDone = "/sdone"
	commandRequests   = "/requests"
)

const requestNotFound = "Request not found"

// usageHint is the InvalidInput reply for commands taking a message id.
func usageHint(command string) string {
	return "The right format is: <code>" + command + "</code> [message id]"
}

// targetMessageID resolves the request message a command refers to: the
// replied-to message when the command is a reply, else a numeric argument.
func targetMessageID(message *tgbotapi.Message) (int64, bool) {
	if message.ReplyToMessage != nil {
		return int64(message.ReplyToMessage.MessageID), true
	}
	arg := commandArgument(message.Text)
	if arg == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// requestStatusMessage renders the short outcome notice of a contributor
// action, linking back to the request message.
func requestStatusMessage(link string, success bool, successText string) string {
	if success {
		return "<a href='" + link + "'>Request</a> " + successText
	}
	return "<a href='" + link + "'>Request</a> not found"
}

// markByReply transitions the replied-to request and posts a short outcome
// notice. Used by /pending, /pause, /done and /sdone.
func (s *Service) markByReply(ctx context.Context, update *tgbotapi.Update, status models.Status) {
	message := update.Message
	chatID := message.Chat.ID

	if _, err := s.groups.Get(ctx, chatID); err != nil {
		return
	}

	target := message.ReplyToMessage
	key := models.RequestKey{MessageID: int64(target.MessageID), GroupID: chatID}
	ok, err := s.lifecycle.Transition(ctx, key, status, message.From.ID, models.AuditContributor)
	if err != nil {
		s.logger.Error("transition failed", slog.Any("error", err))
		return
	}

	link := messageLink(chatID, key.MessageID)
	notice := htmlMessage(chatID, requestStatusMessage(link, ok, "marked as "+status.Description()))
	s.sendAndDelete(ctx, notice, 5*time.Second)
	s.deleteMessage(chatID, message.MessageID)
}

func (s *Service) handleMarkPending(ctx context.Context, update *tgbotapi.Update) {
	s.markByReply(ctx, update, models.StatusPending)
}

func (s *Service) handleMarkPaused(ctx context.Context, update *tgbotapi.Update) {
	s.markByReply(ctx, update, models.StatusPaused)
}

func (s *Service) handleMarkDone(ctx context.Context, update *tgbotapi.Update) {
	s.fulfillReply(ctx, update)
	s.markByReply(ctx, update, models.StatusResolved)
}

func (s *Service) handleMarkDoneSilently(ctx context.Context, update *tgbotapi.Update) {
	s.markByReply(ctx, update, models.StatusResolved)
}

// fulfillReply posts the visible fulfillment message of a non-silent /done:
// the command's trailing text addressed to the requester, credited to the
// contributor.
func (s *Service) fulfillReply(ctx context.Context, update *tgbotapi.Update) {
	message := update.Message
	target := message.ReplyToMessage

	text := tagUser(target.From.ID) + " " + commandArgument(message.Text) + "\n" +
		"Request fulfilled by <code>" + message.From.FirstName + "</code>"

	reply := htmlMessage(message.Chat.ID, text)
	reply.ReplyToMessageID = target.MessageID
	_, _ = s.send(ctx, reply)
}

// handleMarkDoneWithFile resolves the replied-to request when a contributor
// replies with a valid document or audio attachment.
func (s *Service) handleMarkDoneWithFile(ctx context.Context, update *tgbotapi.Update) {
	message := update.Message
	chatID := message.Chat.ID

	if _, err := s.groups.Get(ctx, chatID); err != nil {
		return
	}

	key := models.RequestKey{MessageID: int64(message.ReplyToMessage.MessageID), GroupID: chatID}
	ok, err := s.lifecycle.Transition(ctx, key, models.StatusResolved, message.From.ID, models.AuditContributor)
	if err != nil {
		s.logger.Error("transition failed", slog.Any("error", err))
		return
	}

	link := messageLink(chatID, key.MessageID)
	notice := htmlMessage(chatID, requestStatusMessage(link, ok, "marked as done"))
	s.sendAndDelete(ctx, notice, 5*time.Second)
}

// handleMarkCancelled cancels a request named by reply or by message id.
func (s *Service) handleMarkCancelled(ctx context.Context, update *tgbotapi.Update) {
	s.keyedCommand(ctx, update, commandCancel, func(ctx context.Context, key models.RequestKey, actorID int64) (string, error) {
		ok, err := s.lifecycle.Transition(ctx, key, models.StatusCancelled, actorID, models.AuditContributor)
		if err != nil {
			return "", err
		}
		link := messageLink(key.GroupID, key.MessageID)
		return requestStatusMessage(link, ok, "marked as cancelled"), nil
	})
}

// handleRemoveRequest hard-deletes a request named by reply or by message id.
func (s *Service) handleRemoveRequest(ctx context.Context, update *tgbotapi.Update) {
	s.keyedCommand(ctx, update, commandRemove, func(ctx context.Context, key models.RequestKey, actorID int64) (string, error) {
		ok, err := s.lifecycle.Delete(ctx, key, actorID)
		if err != nil {
			return "", err
		}
		link := messageLink(key.GroupID, key.MessageID)
		return requestStatusMessage(link, ok, "removed"), nil
	})
}

// handleShowRequest prints the request info text for a request named by
// reply or by message id.
func (s *Service) handleShowRequest(ctx context.Context, update *tgbotapi.Update) {
	message := update.Message
	chatID := message.Chat.ID

	group, err := s.groups.Get(ctx, chatID)
	if err != nil {
		return
	}

	var text string
	if messageID, ok := targetMessageID(message); ok {
		key := models.RequestKey{MessageID: messageID, GroupID: group.ID}
		if request, err := s.store.Get(ctx, key); err == nil {
			text = requestInfo(group.Name, request)
		} else {
			text = requestNotFound
		}
	} else {
		text = usageHint(commandShow)
	}

	s.sendAndDelete(ctx, htmlMessage(chatID, text), time.Minute)
	s.deleteMessage(chatID, message.MessageID)
}

// keyedCommand runs a mutation against the request named by the command,
// replying with a 5-second outcome notice or a usage hint.
func (s *Service) keyedCommand(
	ctx context.Context,
	update *tgbotapi.Update,
	command string,
	mutate func(ctx context.Context, key models.RequestKey, actorID int64) (string, error),
) {
	message := update.Message
	chatID := message.Chat.ID

	if _, err := s.groups.Get(ctx, chatID); err != nil {
		return
	}

	var text string
	if messageID, ok := targetMessageID(message); ok {
		key := models.RequestKey{MessageID: messageID, GroupID: chatID}
		var err error
		text, err = mutate(ctx, key, message.From.ID)
		if err != nil {
			s.logger.Error("command failed", slog.String("command", command), slog.Any("error", err))
			return
		}
	} else {
		text = usageHint(command)
	}

	s.sendAndDelete(ctx, htmlMessage(chatID, text), 5*time.Second)
	s.deleteMessage(chatID, message.MessageID)
}
