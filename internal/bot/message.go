package bot

import (
	"strings"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Entity offsets arrive in UTF-16 code units; all slicing below happens on
// the UTF-16 encoding of the text.

// extractLink returns the last URL found in the message entities, with query
// parameters stripped. Empty when the message carries no link.
func extractLink(text string, entities []tgbotapi.MessageEntity) string {
	encoded := utf16.Encode([]rune(text))

	var link string
	for _, entity := range entities {
		switch entity.Type {
		case "text_link":
			link = entity.URL
		case "url":
			link = entitySlice(encoded, entity)
		}
	}
	if link == "" {
		return ""
	}
	return strings.SplitN(link, "?", 2)[0]
}

// extractContent re-renders the message text as HTML, expanding formatting
// entities back into tags so the stored content keeps its markup.
func extractContent(text string, entities []tgbotapi.MessageEntity) string {
	if len(entities) == 0 {
		return text
	}
	encoded := utf16.Encode([]rune(text))

	var b strings.Builder
	cursor := 0
	for _, entity := range entities {
		if entity.Offset < cursor || entity.Offset+entity.Length > len(encoded) {
			continue
		}
		b.WriteString(decodeSlice(encoded[cursor:entity.Offset]))
		b.WriteString(renderEntity(entitySlice(encoded, entity), entity))
		cursor = entity.Offset + entity.Length
	}
	if cursor < len(encoded) {
		b.WriteString(decodeSlice(encoded[cursor:]))
	}
	return b.String()
}

func renderEntity(value string, entity tgbotapi.MessageEntity) string {
	switch entity.Type {
	case "bold":
		return "<b>" + value + "</b>"
	case "italic":
		return "<i>" + value + "</i>"
	case "underline":
		return "<u>" + value + "</u>"
	case "strikethrough":
		return "<s>" + value + "</s>"
	case "spoiler":
		return "<tg-spoiler>" + value + "</tg-spoiler>"
	case "code":
		return "<code>" + value + "</code>"
	case "pre":
		return "<pre>" + value + "</pre>"
	case "text_link":
		return "<a href='" + entity.URL + "'>" + value + "</a>"
	default:
		return value
	}
}

// commandArgument returns the text after the leading /command word.
func commandArgument(text string) string {
	fields := strings.SplitN(strings.TrimSpace(text), " ", 2)
	if len(fields) < 2 {
		return ""
	}
	return strings.TrimSpace(fields[1])
}

// hashtags returns the lowercased hashtag entities of the message.
func hashtags(text string, entities []tgbotapi.MessageEntity) []string {
	encoded := utf16.Encode([]rune(text))

	var tags []string
	for _, entity := range entities {
		if entity.Type != "hashtag" {
			continue
		}
		tags = append(tags, strings.ToLower(entitySlice(encoded, entity)))
	}
	return tags
}

func entitySlice(encoded []uint16, entity tgbotapi.MessageEntity) string {
	if entity.Offset < 0 || entity.Offset+entity.Length > len(encoded) {
		return ""
	}
	return decodeSlice(encoded[entity.Offset : entity.Offset+entity.Length])
}

func decodeSlice(encoded []uint16) string {
	return string(utf16.Decode(encoded))
}
