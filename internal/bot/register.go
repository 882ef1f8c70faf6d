package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shelfmark/shelfmark/internal/dispatch"
	"github.com/shelfmark/shelfmark/internal/models"
)

// register wires every handler into the dispatch registry. Registration
// order encodes priority: admin group management first, then request intake,
// then the contributor surface.
func (s *Service) register() {
	groupChat := dispatch.OnChatTypes("group", "supergroup")
	anyChat := dispatch.OnChatTypes("group", "supergroup", "private")
	privateChat := dispatch.OnChatTypes("private")
	admin := dispatch.OnRole(s.roles, models.RoleAdmin)
	contributor := dispatch.OnRole(s.roles, models.RoleContributor)

	// group management
	s.registry.Register(s.handleGroupInfo, groupChat, dispatch.OnCommand(commandGroupInfo), admin)
	s.registry.Register(s.handleEnableGroup, groupChat, dispatch.OnCommand(commandEnableGroup), admin)
	s.registry.Register(s.handleDisableGroup, groupChat, dispatch.OnCommand(commandDisableGroup), admin)
	s.registry.Register(s.handleRequestLimit, groupChat, dispatch.OnCommand(commandRequestLimit), admin)
	s.registry.Register(s.handleAudiobookDaysWait, groupChat, dispatch.OnCommand(commandAudiobookWait), admin)
	s.registry.Register(s.handleEnglishAudiobookDaysWait, groupChat, dispatch.OnCommand(commandEnglishAudioWait), admin)
	s.registry.Register(s.handleAllowSources, groupChat, dispatch.OnCommand(commandAllowSources), admin)
	s.registry.Register(s.handleNoRepeatSources, groupChat, dispatch.OnCommand(commandNoRepeatSources), admin)

	// request intake
	s.registry.Register(s.handleNewRequest, onRequestMessage)
	s.registry.Register(s.handleEditedRequest, onEditedRequestMessage)

	// contributor commands
	s.registry.Register(s.handleGetRequests, anyChat, dispatch.OnCommand(commandRequests), contributor)
	s.registry.Register(s.handleShowRequest, groupChat, dispatch.OnCommand(commandShow), contributor)
	s.registry.Register(s.handleMarkPending, groupChat, dispatch.OnReplyToCommand(commandPending), contributor)
	s.registry.Register(s.handleMarkPaused, groupChat, dispatch.OnReplyToCommand(commandPause), contributor)
	s.registry.Register(s.handleMarkCancelled, groupChat, dispatch.OnCommand(commandCancel), contributor)
	s.registry.Register(s.handleRemoveRequest, groupChat, dispatch.OnCommand(commandRemove), contributor)
	s.registry.Register(s.handleMarkDone, groupChat, dispatch.OnReplyToCommand(commandDone), contributor)
	s.registry.Register(s.handleMarkDoneSilently, groupChat, dispatch.OnReplyToCommand(commandSilentDone), contributor)
	s.registry.Register(s.handleMarkDoneWithFile, groupChat, dispatch.OnReplyWithValidFile(), contributor)

	// action cards and the two-step confirmation
	s.registry.Register(s.handleShowWithActions, privateChat, dispatch.OnTextRegexp(startShowPattern), contributor)
	s.registry.Register(s.handleConfirmAction, dispatch.OnCallback(confirmCallbackPattern, dispatch.MatchRegexp), contributor)
	s.registry.Register(s.handleActionCallback, dispatch.OnCallback(actionCallbackPattern, dispatch.MatchRegexp), contributor)
}

func onRequestMessage(_ context.Context, update *tgbotapi.Update) bool {
	return update.Message != nil &&
		hasRequestTag(update.Message.Text, update.Message.Entities)
}

func onEditedRequestMessage(_ context.Context, update *tgbotapi.Update) bool {
	return update.EditedMessage != nil &&
		hasRequestTag(update.EditedMessage.Text, update.EditedMessage.Entities)
}
