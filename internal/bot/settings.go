package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shelfmark/shelfmark/internal/groups"
	"github.com/shelfmark/shelfmark/internal/models"
)

// Group management command surface, gated to group chats and the ADMIN role.
const (
	commandGroupInfo        = "/group_info"
	commandEnableGroup      = "/enable_group"
	commandDisableGroup     = "/disable_group"
	commandRequestLimit     = "/request_limit"
	commandAudiobookWait    = "/audiobook_days_wait"
	commandEnglishAudioWait = "/english_audiobook_days_wait"
	commandAllowSources     = "/allow"
	commandNoRepeatSources  = "/no_repeat"
)

const (
	settingsNoticeTTL       = 5 * time.Second
	settingsGroupNotTracked = "This group is not tracked. Use <code>/enable_group</code> first."
)

func settingUsageHint(command string) string {
	return "The right format is: <code>" + command + "</code> [value]"
}

func (s *Service) handleGroupInfo(ctx context.Context, update *tgbotapi.Update) {
	message := update.Message
	chatID := message.Chat.ID

	group, err := s.groups.Get(ctx, chatID)
	if err != nil {
		s.settingNotice(ctx, message, settingsGroupNotTracked)
		return
	}

	allowed := "all"
	if len(group.AllowedSources) > 0 {
		allowed = models.JoinSources(group.AllowedSources)
	}
	noRepeat := "none"
	if len(group.NoRepeatSources) > 0 {
		noRepeat = models.JoinSources(group.NoRepeatSources)
	}

	text := fmt.Sprintf("<b>%s</b> (<code>%d</code>)\n"+
		"Enabled: %t\n"+
		"Requests per day: %d\n"+
		"Audiobook wait: %d days\n"+
		"English audiobook wait: %d days\n"+
		"Allowed sources: %s\n"+
		"No-repeat sources: %s",
		group.Name, group.ID, group.Enabled,
		group.RequestLimitPerDay,
		group.AudiobookDaysWait,
		group.EnglishAudiobookDaysWait,
		allowed, noRepeat,
	)
	s.sendAndDelete(ctx, htmlMessage(chatID, text), time.Minute)
	s.deleteMessage(chatID, message.MessageID)
}

func (s *Service) handleEnableGroup(ctx context.Context, update *tgbotapi.Update) {
	message := update.Message
	chatID := message.Chat.ID

	if err := s.groups.Enable(ctx, chatID, message.Chat.Title); err != nil {
		s.logger.Error("enable group failed", slog.Int64("group", chatID), slog.Any("error", err))
		s.settingNotice(ctx, message, "Something went wrong")
		return
	}
	s.settingNotice(ctx, message, "Group enabled")
}

func (s *Service) handleDisableGroup(ctx context.Context, update *tgbotapi.Update) {
	s.applySetting(ctx, update, "Group disabled", func(ctx context.Context, chatID int64) error {
		return s.groups.Disable(ctx, chatID)
	})
}

func (s *Service) handleRequestLimit(ctx context.Context, update *tgbotapi.Update) {
	s.applyIntSetting(ctx, update, commandRequestLimit, "Request limit updated", s.groups.SetRequestLimit)
}

func (s *Service) handleAudiobookDaysWait(ctx context.Context, update *tgbotapi.Update) {
	s.applyIntSetting(ctx, update, commandAudiobookWait, "Audiobook wait updated", s.groups.SetAudiobookDaysWait)
}

func (s *Service) handleEnglishAudiobookDaysWait(ctx context.Context, update *tgbotapi.Update) {
	s.applyIntSetting(ctx, update, commandEnglishAudioWait, "English audiobook wait updated", s.groups.SetEnglishAudiobookDaysWait)
}

func (s *Service) handleAllowSources(ctx context.Context, update *tgbotapi.Update) {
	s.applySourceSetting(ctx, update, commandAllowSources, "Allowed sources updated", s.groups.SetAllowedSources)
}

func (s *Service) handleNoRepeatSources(ctx context.Context, update *tgbotapi.Update) {
	s.applySourceSetting(ctx, update, commandNoRepeatSources, "No-repeat sources updated", s.groups.SetNoRepeatSources)
}

func (s *Service) applyIntSetting(
	ctx context.Context,
	update *tgbotapi.Update,
	command, successText string,
	set func(ctx context.Context, id int64, value int) error,
) {
	message := update.Message
	value, err := strconv.Atoi(commandArgument(message.Text))
	if err != nil {
		s.settingNotice(ctx, message, settingUsageHint(command))
		return
	}
	s.applySetting(ctx, update, successText, func(ctx context.Context, chatID int64) error {
		return set(ctx, chatID, value)
	})
}

func (s *Service) applySourceSetting(
	ctx context.Context,
	update *tgbotapi.Update,
	command, successText string,
	set func(ctx context.Context, id int64, sources []models.Source) error,
) {
	message := update.Message
	sources, err := models.ParseSources(commandArgument(message.Text))
	if err != nil {
		s.settingNotice(ctx, message, settingUsageHint(command))
		return
	}
	s.applySetting(ctx, update, successText, func(ctx context.Context, chatID int64) error {
		return set(ctx, chatID, sources)
	})
}

// applySetting runs one settings mutation and notifies the outcome. Unknown
// groups get a hint at /enable_group.
func (s *Service) applySetting(
	ctx context.Context,
	update *tgbotapi.Update,
	successText string,
	apply func(ctx context.Context, chatID int64) error,
) {
	message := update.Message
	chatID := message.Chat.ID

	err := apply(ctx, chatID)
	switch {
	case err == nil:
		s.settingNotice(ctx, message, successText)
	case errors.Is(err, groups.ErrNotFound):
		s.settingNotice(ctx, message, settingsGroupNotTracked)
	default:
		s.logger.Error("group setting failed", slog.Int64("group", chatID), slog.Any("error", err))
		s.settingNotice(ctx, message, "Something went wrong")
	}
}

func (s *Service) settingNotice(ctx context.Context, message *tgbotapi.Message, text string) {
	s.sendAndDelete(ctx, htmlMessage(message.Chat.ID, text), settingsNoticeTTL)
	s.deleteMessage(message.Chat.ID, message.MessageID)
}
