package dispatch

import (
	"context"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shelfmark/shelfmark/internal/models"
	"github.com/shelfmark/shelfmark/internal/roles"
)

// Attachment MIME types and file extensions accepted for done-with-file
// replies. An empty MIME type is accepted and falls through to the extension
// check.
var (
	validMimeTypes = map[string]struct{}{
		"application/zip":                    {},
		"application/vnd.rar":                {},
		"document/x-m4b":                     {},
		"audio/x-m4b":                        {},
		"audio/mpeg":                         {},
		"application/epub+zip":               {},
		"application/vnd.amazon.mobi8-ebook": {},
		"application/vnd.amazon.ebook":       {},
		"application/x-mobipocket-ebook":     {},
		"application/pdf":                    {},
		"image/vnd.djvu":                     {},
		"application/octet-stream":           {},
	}
	validExtensions = []string{
		".zip", ".rar", ".mobi", ".pdf", ".epub", ".azw3", ".azw", ".txt",
		".doc", ".docx", ".rtf", ".cbz", ".cbr", ".djvu", ".chm", ".fb2",
		".mp3", ".m4b", ".opus",
	}
)

// OnChatTypes passes for message or callback updates arriving from one of the
// given chat types ("private", "group", "supergroup").
func OnChatTypes(types ...string) Condition {
	return func(_ context.Context, update *tgbotapi.Update) bool {
		chat := chatOf(update)
		if chat == nil {
			return false
		}
		for _, t := range types {
			if chat.Type == t {
				return true
			}
		}
		return false
	}
}

// OnCommand passes for messages whose first word is the command, with or
// without a @botname suffix. The command includes the leading slash.
func OnCommand(command string) Condition {
	return func(_ context.Context, update *tgbotapi.Update) bool {
		return isCommand(update.Message, command)
	}
}

// OnReplyToCommand passes for command messages that reply to another message.
func OnReplyToCommand(command string) Condition {
	return func(_ context.Context, update *tgbotapi.Update) bool {
		return update.Message != nil && update.Message.ReplyToMessage != nil &&
			isCommand(update.Message, command)
	}
}

// Match selects how OnCallback compares the payload against the pattern.
type Match int

const (
	MatchEquals Match = iota
	MatchStartsWith
	MatchRegexp
)

// OnCallback passes for callback-query updates whose payload matches the
// pattern. MatchRegexp patterns are compiled once at registration time.
func OnCallback(pattern string, match Match) Condition {
	var re *regexp.Regexp
	if match == MatchRegexp {
		re = regexp.MustCompile(pattern)
	}
	return func(_ context.Context, update *tgbotapi.Update) bool {
		if update.CallbackQuery == nil {
			return false
		}
		data := update.CallbackQuery.Data
		switch match {
		case MatchEquals:
			return data == pattern
		case MatchStartsWith:
			return strings.HasPrefix(data, pattern)
		default:
			return re.MatchString(data)
		}
	}
}

// OnTextRegexp passes for messages whose text matches the pattern.
func OnTextRegexp(pattern string) Condition {
	re := regexp.MustCompile(pattern)
	return func(_ context.Context, update *tgbotapi.Update) bool {
		return update.Message != nil && re.MatchString(update.Message.Text)
	}
}

// OnRole passes when the resolver grants the sender at least the required
// role. Resolver failures deny, they never crash a dispatch.
func OnRole(resolver roles.Resolver, required models.Role) Condition {
	return func(ctx context.Context, update *tgbotapi.Update) bool {
		from := fromOf(update)
		chat := chatOf(update)
		if from == nil || chat == nil {
			return false
		}
		role, err := resolver.Resolve(ctx, from.ID, chat.ID)
		if err != nil {
			return false
		}
		return role.AtLeast(required)
	}
}

// OnReplyWithValidFile passes for replies carrying a document or audio whose
// MIME type or file extension is on the allow-list.
func OnReplyWithValidFile() Condition {
	return func(_ context.Context, update *tgbotapi.Update) bool {
		msg := update.Message
		if msg == nil || msg.ReplyToMessage == nil {
			return false
		}
		if doc := msg.Document; doc != nil {
			return validAttachment(doc.MimeType, doc.FileName)
		}
		if audio := msg.Audio; audio != nil {
			return validAttachment(audio.MimeType, audio.FileName)
		}
		return false
	}
}

func validAttachment(mimeType, fileName string) bool {
	if mimeType == "" {
		return validExtension(fileName)
	}
	if _, ok := validMimeTypes[mimeType]; ok {
		return true
	}
	return validExtension(fileName)
}

func validExtension(fileName string) bool {
	lower := strings.ToLower(fileName)
	for _, ext := range validExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func isCommand(msg *tgbotapi.Message, command string) bool {
	if msg == nil || msg.Text == "" {
		return false
	}
	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return false
	}
	first := fields[0]
	if at := strings.IndexByte(first, '@'); at >= 0 {
		first = first[:at]
	}
	return strings.EqualFold(first, command)
}

func chatOf(update *tgbotapi.Update) *tgbotapi.Chat {
	switch {
	case update.Message != nil:
		return update.Message.Chat
	case update.EditedMessage != nil:
		return update.EditedMessage.Chat
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.Message.Chat
	}
	return nil
}

func fromOf(update *tgbotapi.Update) *tgbotapi.User {
	switch {
	case update.Message != nil:
		return update.Message.From
	case update.EditedMessage != nil:
		return update.EditedMessage.From
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From
	}
	return nil
}
