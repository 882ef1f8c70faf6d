package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shelfmark/shelfmark/internal/models"
	"github.com/shelfmark/shelfmark/internal/quota"
	"github.com/shelfmark/shelfmark/internal/requests"
)

// Hashtags that open a request. #audiobook selects the AUDIOBOOK format,
// the others select EBOOK.
var requestTags = map[string]models.Format{
	"#request":   models.FormatEbook,
	"#ebook":     models.FormatEbook,
	"#audiobook": models.FormatAudiobook,
}

const noticeTTL = 30 * time.Second

// parsedRequest is the outcome of reading the hashtags and entities of a
// request message.
type parsedRequest struct {
	Format    models.Format
	Source    models.Source
	OtherTags string
	Link      string
	Content   string
}

// hasRequestTag reports whether the message carries a request-opening hashtag.
func hasRequestTag(text string, entities []tgbotapi.MessageEntity) bool {
	for _, tag := range hashtags(text, entities) {
		if _, ok := requestTags[tag]; ok {
			return true
		}
	}
	return false
}

// parseRequest extracts the request fields from a message. The first hashtag
// that is neither a request tag nor a source tag becomes the free-form other
// tag (language or topic).
func parseRequest(text string, entities []tgbotapi.MessageEntity) parsedRequest {
	parsed := parsedRequest{
		Format:  models.FormatEbook,
		Link:    extractLink(text, entities),
		Content: extractContent(text, entities),
	}
	for _, tag := range hashtags(text, entities) {
		if format, ok := requestTags[tag]; ok {
			if format == models.FormatAudiobook {
				parsed.Format = models.FormatAudiobook
			}
			continue
		}
		if source, err := models.ParseSource(strings.TrimPrefix(tag, "#")); err == nil {
			parsed.Source = source
			continue
		}
		if parsed.OtherTags == "" {
			parsed.OtherTags = strings.TrimPrefix(tag, "#")
		}
	}
	return parsed
}

// handleNewRequest processes a request message posted in an enabled group.
func (s *Service) handleNewRequest(ctx context.Context, update *tgbotapi.Update) {
	message := update.Message
	s.intake(ctx, message, message.Time())
}

// handleEditedRequest processes an edited request message. An edit by the
// creator updates the stored content; an edit of a message that never became
// a request (for example one rejected earlier that day) is a fresh
// submission at the edit time.
func (s *Service) handleEditedRequest(ctx context.Context, update *tgbotapi.Update) {
	message := update.EditedMessage
	editTime := time.Unix(int64(message.EditDate), 0)

	group, err := s.groups.GetEnabled(ctx, message.Chat.ID)
	if err != nil {
		return
	}

	parsed := parseRequest(message.Text, message.Entities)
	if parsed.Link == "" {
		s.incompleteNotice(ctx, message)
		return
	}

	key := models.RequestKey{MessageID: int64(message.MessageID), GroupID: group.ID}
	existing, err := s.store.Get(ctx, key)
	switch {
	case err == nil && existing.UserID == message.From.ID:
		_, err := s.lifecycle.Update(ctx, key, parsed.Link, parsed.Content, parsed.Format, parsed.Source, parsed.OtherTags)
		if err != nil {
			s.logger.Error("request update failed", slog.Any("error", err))
		}
	case err == nil:
		// someone else's request; leave it alone
	default:
		s.submit(ctx, message, group, parsed, editTime)
	}
}

func (s *Service) intake(ctx context.Context, message *tgbotapi.Message, at time.Time) {
	group, err := s.groups.GetEnabled(ctx, message.Chat.ID)
	if err != nil {
		return
	}

	parsed := parseRequest(message.Text, message.Entities)
	if parsed.Link == "" {
		s.incompleteNotice(ctx, message)
		return
	}

	s.submit(ctx, message, group, parsed, at)
}

// incompleteNotice tells the user a request message is missing its link.
func (s *Service) incompleteNotice(ctx context.Context, message *tgbotapi.Message) {
	notice := htmlMessage(message.Chat.ID,
		tagUser(message.From.ID)+" your request is incomplete. Add a link to what you are requesting.")
	notice.ReplyToMessageID = message.MessageID
	s.sendAndDelete(ctx, notice, noticeTTL)
}

func (s *Service) submit(ctx context.Context, message *tgbotapi.Message, group models.Group, parsed parsedRequest, at time.Time) {
	userID := message.From.ID

	if !group.AllowsSource(parsed.Source) {
		s.rejectMessage(ctx, message,
			"requests from this source are not allowed here.")
		return
	}

	key := models.RequestKey{MessageID: int64(message.MessageID), GroupID: group.ID}
	result, err := s.lifecycle.Submit(ctx, group, quota.Submission{
		UserID:    userID,
		GroupID:   group.ID,
		Format:    parsed.Format,
		Source:    parsed.Source,
		OtherTags: parsed.OtherTags,
		Link:      parsed.Link,
		Time:      at,
	}, models.Request{
		Key:         key,
		UserID:      userID,
		Format:      parsed.Format,
		Source:      parsed.Source,
		OtherTags:   parsed.OtherTags,
		Link:        parsed.Link,
		Content:     parsed.Content,
		RequestDate: at,
	})
	if err != nil {
		if errors.Is(err, requests.ErrConflict) {
			// same message submitted twice; the first one won
			return
		}
		s.logger.Error("submit failed",
			slog.Int64("group", group.ID),
			slog.Int64("user", userID),
			slog.Any("error", err),
		)
		return
	}

	if !result.Decision.Accepted {
		s.rejectMessage(ctx, message, rejectionText(result.Decision, at))
	}
}

// rejectMessage notifies the user why the submission was refused and removes
// the request message from the group.
func (s *Service) rejectMessage(ctx context.Context, message *tgbotapi.Message, reason string) {
	notice := htmlMessage(message.Chat.ID, tagUser(message.From.ID)+" "+reason)
	s.sendAndDelete(ctx, notice, noticeTTL)
	s.deleteMessage(message.Chat.ID, message.MessageID)
}

func rejectionText(decision quota.Decision, at time.Time) string {
	switch decision.Reason {
	case quota.ReasonDailyLimit:
		return "you reached the daily limit of requests. " + quota.ComeBackAgain(at, decision.RetryAt)
	case quota.ReasonCooldown:
		return "you need to wait before requesting another audiobook. " + quota.ComeBackAgain(at, decision.RetryAt)
	case quota.ReasonDuplicate:
		return "this request already exists."
	}
	return "your request was refused."
}
