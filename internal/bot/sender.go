package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// send delivers one message through the shared outbound throttle.
func (s *Service) send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return tgbotapi.Message{}, err
	}
	msg, err := s.api.Send(c)
	if err != nil {
		s.logger.Error("send failed", slog.Any("error", err))
	}
	return msg, err
}

// sendAndDelete sends a message and schedules its deletion. The timer is
// fire-and-forget: a failed delete (already gone, permission revoked) is
// swallowed and never retried.
func (s *Service) sendAndDelete(ctx context.Context, c tgbotapi.Chattable, after time.Duration) {
	msg, err := s.send(ctx, c)
	if err != nil {
		return
	}
	chatID := msg.Chat.ID
	messageID := msg.MessageID
	time.AfterFunc(after, func() {
		s.deleteMessage(chatID, messageID)
	})
}

// deleteMessage removes a message, best-effort.
func (s *Service) deleteMessage(chatID int64, messageID int) {
	if _, err := s.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		s.logger.Debug("delete message failed",
			slog.Int64("chat", chatID),
			slog.Int("message", messageID),
			slog.Any("error", err),
		)
	}
}

// answerCallback acknowledges a callback query, optionally with a toast text.
func (s *Service) answerCallback(id, text string) {
	if _, err := s.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		s.logger.Debug("answer callback failed", slog.Any("error", err))
	}
}

// htmlMessage builds a message with HTML parse mode.
func htmlMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return msg
}

// messageLink renders the t.me link of a message in a supergroup.
func messageLink(groupID int64, messageID int64) string {
	group := strings.TrimPrefix(strconv.FormatInt(groupID, 10), "-100")
	group = strings.TrimPrefix(group, "-")
	return fmt.Sprintf("https://t.me/c/%s/%d", group, messageID)
}

// startLink renders a deep link opening a private chat with a start payload.
func startLink(username, payload string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", username, payload)
}

// actionsLink is the deep link that renders the action card for a request in PM.
func actionsLink(username string, messageID, groupID int64) string {
	return startLink(username, fmt.Sprintf("show_message=%d_group=%d", messageID, groupID))
}

// tagUser renders a mention that works without a username.
func tagUser(userID int64) string {
	return fmt.Sprintf("<a href='tg://user?id=%d'>%d</a>", userID, userID)
}
