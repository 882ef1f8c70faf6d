package bot

import (
	"context"
	"regexp"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shelfmark/shelfmark/internal/models"
	"github.com/shelfmark/shelfmark/internal/token"
)

// Callback and start-payload grammars routed by the dispatcher.
const (
	confirmCallbackPattern = `^confirm message=[0-9]+ group=[+-]?[0-9]+ action=[a-zA-Z]+$`
	actionCallbackPattern  = `^(PENDING|PAUSE|DONE|CANCEL|REMOVE) message=[0-9]+ group=[+-]?[0-9]+ refreshShow=[0-9]+$`
	startShowPattern       = `^/start show_message=[0-9]+_group=[+-]?[0-9]+$`
)

var startShowRegexp = regexp.MustCompile(`^/start show_message=([0-9]+)_group=([+-]?[0-9]+)$`)

// handleConfirmAction handles the first tap on a card button. It never
// mutates state: it answers the callback and sends an ephemeral confirmation
// prompt whose single button carries the unwrapped action token.
func (s *Service) handleConfirmAction(ctx context.Context, update *tgbotapi.Update) {
	query := update.CallbackQuery

	decoded, err := token.Decode(query.Data)
	if err != nil {
		s.answerCallback(query.ID, "Nothing to do")
		return
	}
	envelope, ok := decoded.(token.Confirm)
	if !ok {
		s.answerCallback(query.ID, "Nothing to do")
		return
	}

	s.answerCallback(query.ID, "")

	var cardMessageID int64
	if query.Message != nil {
		cardMessageID = int64(query.Message.MessageID)
	}

	prompt := htmlMessage(query.From.ID,
		"You chose to <code>"+envelope.Action.Description()+"</code>\n"+
			"Are you sure you want to continue?\n"+
			"<i>This message will disappear in 1 minute.</i>")
	prompt.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✔️ Yes", envelope.Unwrap(cardMessageID).Encode()),
		),
	)
	s.sendAndDelete(ctx, prompt, time.Minute)
}

// handleActionCallback handles the second tap. It decodes the action token,
// performs the action, refreshes the originating card and answers the
// callback with the outcome. The confirmation prompt is deleted regardless.
func (s *Service) handleActionCallback(ctx context.Context, update *tgbotapi.Update) {
	query := update.CallbackQuery

	result := "Request id not found"
	decoded, err := token.Decode(query.Data)
	if err == nil {
		if action, ok := decoded.(token.Action); ok {
			result = s.performAction(ctx, action, query.From.ID)

			if action.RefreshShow != 0 {
				s.deleteMessage(query.From.ID, int(action.RefreshShow))
				s.sendRequestCard(ctx, query.From.ID, models.RequestKey{
					MessageID: action.MessageID,
					GroupID:   action.GroupID,
				})
			}
		}
	}

	s.answerCallback(query.ID, result)

	if query.Message != nil {
		s.deleteMessage(query.From.ID, query.Message.MessageID)
	}
}

// performAction executes a decoded action token and returns the outcome text.
// A stale token pointing at a missing request is an ordinary not-found
// outcome, not an error.
func (s *Service) performAction(ctx context.Context, action token.Action, actorID int64) string {
	key := models.RequestKey{MessageID: action.MessageID, GroupID: action.GroupID}

	if action.Action == models.ActionRemove {
		ok, err := s.lifecycle.Delete(ctx, key, actorID)
		if err != nil {
			return "Something went wrong"
		}
		if !ok {
			return requestNotFound
		}
		return "Request removed"
	}

	status, ok := action.Action.Status()
	if !ok {
		return "Nothing to do"
	}

	done, err := s.lifecycle.Transition(ctx, key, status, actorID, models.AuditContributor)
	if err != nil {
		return "Something went wrong"
	}
	if !done {
		return requestNotFound
	}
	return "Request marked as " + status.Description()
}

// handleShowWithActions handles the /start deep link emitted by the Actions
// and Refresh links: it renders the action card in the private chat.
func (s *Service) handleShowWithActions(ctx context.Context, update *tgbotapi.Update) {
	message := update.Message

	match := startShowRegexp.FindStringSubmatch(message.Text)
	if match == nil {
		return
	}
	messageID, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return
	}
	groupID, err := strconv.ParseInt(match[2], 10, 64)
	if err != nil {
		return
	}

	s.sendRequestCard(ctx, message.Chat.ID, models.RequestKey{MessageID: messageID, GroupID: groupID})
	s.deleteMessage(message.Chat.ID, message.MessageID)
}
