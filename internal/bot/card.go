package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shelfmark/shelfmark/internal/models"
	"github.com/shelfmark/shelfmark/internal/token"
)

// requestInfo renders the card body: the request content plus a summary block.
func requestInfo(groupName string, request models.Request) string {
	var b strings.Builder
	b.WriteString(request.Content)
	b.WriteString("\n\n[")
	b.WriteString("Request by ")
	b.WriteString(tagUser(request.UserID))
	b.WriteString(fmt.Sprintf("(<code>%d</code>)", request.UserID))
	b.WriteString(" in #")
	b.WriteString(strings.ReplaceAll(groupName, " ", "_"))
	b.WriteString(". Status: <b>")
	b.WriteString(strings.ToUpper(request.Status.Description()))
	b.WriteString("</b>]")
	return b.String()
}

// cardKeyboard builds the action buttons of a request card. Every button
// carries a confirm envelope; the button matching the current status is
// replaced by the pending button, so the active state always offers a
// one-tap way back to PENDING instead of a no-op.
func (s *Service) cardKeyboard(request models.Request) tgbotapi.InlineKeyboardMarkup {
	key := request.Key
	envelope := func(action models.Action) string {
		return token.Confirm{Action: action, MessageID: key.MessageID, GroupID: key.GroupID}.Encode()
	}

	requestButton := tgbotapi.NewInlineKeyboardButtonURL("📚 Request", messageLink(key.GroupID, key.MessageID))
	refreshButton := tgbotapi.NewInlineKeyboardButtonURL("📝 Refresh", actionsLink(s.username, key.MessageID, key.GroupID))
	doneButton := tgbotapi.NewInlineKeyboardButtonData("✅ Done", envelope(models.ActionDone))
	pendingButton := tgbotapi.NewInlineKeyboardButtonData("⏳ Pending", envelope(models.ActionPending))
	pauseButton := tgbotapi.NewInlineKeyboardButtonData("⏸ Pause", envelope(models.ActionPause))
	cancelButton := tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", envelope(models.ActionCancel))
	removeButton := tgbotapi.NewInlineKeyboardButtonData("🗑 Remove", envelope(models.ActionRemove))

	pick := func(button tgbotapi.InlineKeyboardButton, status models.Status) tgbotapi.InlineKeyboardButton {
		if request.Status == status {
			return pendingButton
		}
		return button
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(requestButton, refreshButton),
		tgbotapi.NewInlineKeyboardRow(
			pick(pauseButton, models.StatusPaused),
			pick(doneButton, models.StatusResolved),
		),
		tgbotapi.NewInlineKeyboardRow(
			pick(cancelButton, models.StatusCancelled),
			removeButton,
		),
	)
}

// sendRequestCard renders the card for a request into chatID. Unknown groups
// or requests render nothing.
func (s *Service) sendRequestCard(ctx context.Context, chatID int64, key models.RequestKey) {
	group, err := s.groups.Get(ctx, key.GroupID)
	if err != nil {
		return
	}
	request, err := s.store.Get(ctx, key)
	if err != nil {
		return
	}

	msg := htmlMessage(chatID, requestInfo(group.Name, request))
	msg.ReplyMarkup = s.cardKeyboard(request)
	_, _ = s.send(ctx, msg)
}
