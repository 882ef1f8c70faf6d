package bot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shelfmark/shelfmark/internal/models"
	"github.com/shelfmark/shelfmark/internal/quota"
	"github.com/shelfmark/shelfmark/internal/requests"
)

// Telegram rejects messages above this length; lists are chunked under it.
const messageLengthLimit = 4096

const listPageSize = 200

// /requests filter grammar: space-separated key=value pairs after the command.
var (
	filterGroupRegexp  = regexp.MustCompile(`group=([+-]?[0-9]+)`)
	filterStatusRegexp = regexp.MustCompile(`status=([a-zA-Z]+)`)
	filterFormatRegexp = regexp.MustCompile(`format=([a-zA-Z]+)`)
	filterSourceRegexp = regexp.MustCompile(`source=([a-zA-Z]+)`)
	filterOrderRegexp  = regexp.MustCompile(`order=([a-zA-Z]+)`)
)

// parseListFilter reads the /requests filters from the command text. The
// group filter is honored only in private chats; inside a group the group is
// always the chat itself. Status defaults to PENDING.
func parseListFilter(text string, chatID int64, isPrivate bool) requests.ListFilter {
	filter := requests.ListFilter{Status: models.StatusPending}

	if isPrivate {
		if match := filterGroupRegexp.FindStringSubmatch(text); match != nil {
			filter.GroupID, _ = strconv.ParseInt(match[1], 10, 64)
		}
	} else {
		filter.GroupID = chatID
	}
	if match := filterStatusRegexp.FindStringSubmatch(text); match != nil {
		if status, err := models.ParseStatus(match[1]); err == nil {
			filter.Status = status
		}
	}
	if match := filterFormatRegexp.FindStringSubmatch(text); match != nil {
		if format, err := models.ParseFormat(match[1]); err == nil {
			filter.Format = format
		}
	}
	if match := filterSourceRegexp.FindStringSubmatch(text); match != nil {
		if source, err := models.ParseSource(match[1]); err == nil {
			filter.Source = source
		}
	}
	if match := filterOrderRegexp.FindStringSubmatch(text); match != nil {
		filter.Descending = strings.EqualFold(match[1], "NEW")
	}
	return filter
}

// handleGetRequests lists requests matching the command filters, chunked
// under the message length limit, each entry carrying an elapsed-time and an
// Actions deep link.
func (s *Service) handleGetRequests(ctx context.Context, update *tgbotapi.Update) {
	message := update.Message
	chatID := message.Chat.ID
	isPrivate := message.Chat.IsPrivate()

	// valid contexts are tracked groups and private chats
	if _, err := s.groups.Get(ctx, chatID); err != nil && !isPrivate {
		return
	}
	if !isPrivate {
		s.deleteMessage(chatID, message.MessageID)
	}

	filter := parseListFilter(message.Text, chatID, isPrivate)
	title := s.listTitle(ctx, filter)

	entries, err := s.listEntries(ctx, filter)
	if err != nil {
		s.logger.Error("list requests failed", slog.Any("error", err))
		return
	}

	ephemeral := filter.GroupID != 0
	if len(entries) == 0 {
		s.sendListChunk(ctx, chatID, title+"No requests found", ephemeral, 30*time.Second)
		return
	}

	var b strings.Builder
	b.WriteString(title)
	for _, entry := range entries {
		if b.Len()+len(entry) > messageLengthLimit {
			s.sendListChunk(ctx, chatID, b.String(), ephemeral, 5*time.Minute)
			b.Reset()
			b.WriteString(title)
		}
		b.WriteString(entry)
	}
	s.sendListChunk(ctx, chatID, b.String(), ephemeral, 5*time.Minute)
}

// listEntries pages through the matching requests and renders one line per
// request. Group names are resolved once per group.
func (s *Service) listEntries(ctx context.Context, filter requests.ListFilter) ([]string, error) {
	now := time.Now()
	names := map[int64]string{}
	groupName := func(groupID int64) string {
		if name, ok := names[groupID]; ok {
			return name
		}
		name := "Unknown"
		if group, err := s.groups.Get(ctx, groupID); err == nil {
			name = group.Name
		}
		names[groupID] = name
		return name
	}

	var entries []string
	for offset := 0; ; offset += listPageSize {
		page, err := s.store.List(ctx, filter, listPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, request := range page {
			key := request.Key
			entries = append(entries, fmt.Sprintf(
				"<a href='%s'>%s %d</a> %s ago [<a href='%s'>Actions</a> for <code>%d</code>]\n",
				messageLink(key.GroupID, key.MessageID),
				groupName(key.GroupID),
				len(entries)+1,
				quota.ElapsedBetween(request.RequestDate, now),
				actionsLink(s.username, key.MessageID, key.GroupID),
				key.MessageID,
			))
		}
		if len(page) < listPageSize {
			return entries, nil
		}
	}
}

func (s *Service) listTitle(ctx context.Context, filter requests.ListFilter) string {
	var b strings.Builder
	b.WriteString("<b>Requests " + filter.Status.Description() + "</b>")
	if filter.GroupID != 0 {
		name := "Unknown"
		if group, err := s.groups.Get(ctx, filter.GroupID); err == nil {
			name = group.Name
		}
		b.WriteString(fmt.Sprintf("\nGroup [%s (<code>%d</code>)]", name, filter.GroupID))
	}
	if filter.Format != "" {
		b.WriteString("\nFormat [" + string(filter.Format) + "]")
	}
	if filter.Source != "" {
		b.WriteString("\nSource [" + string(filter.Source) + "]")
	}
	order := "OLD"
	if filter.Descending {
		order = "NEW"
	}
	b.WriteString("\nShow " + order + " first.\n\n")
	return b.String()
}

func (s *Service) sendListChunk(ctx context.Context, chatID int64, text string, ephemeral bool, ttl time.Duration) {
	msg := htmlMessage(chatID, text)
	if ephemeral {
		s.sendAndDelete(ctx, msg, ttl)
		return
	}
	_, _ = s.send(ctx, msg)
}
