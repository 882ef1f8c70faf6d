package models

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a request.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaused    Status = "PAUSED"
	StatusResolved  Status = "RESOLVED"
	StatusCancelled Status = "CANCELLED"
)

// Statuses lists all lifecycle states.
var Statuses = []Status{StatusPending, StatusPaused, StatusResolved, StatusCancelled}

// Description returns the human wording used in notifications ("marked as <description>").
func (s Status) Description() string {
	switch s {
	case StatusResolved:
		return "done"
	default:
		return strings.ToLower(string(s))
	}
}

// ParseStatus parses a case-insensitive status name.
func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(value))) {
	case StatusPending:
		return StatusPending, nil
	case StatusPaused:
		return StatusPaused, nil
	case StatusResolved:
		return StatusResolved, nil
	case StatusCancelled:
		return StatusCancelled, nil
	}
	return "", fmt.Errorf("unknown status: %s", value)
}

// Format is the kind of content a request asks for.
type Format string

const (
	FormatEbook     Format = "EBOOK"
	FormatAudiobook Format = "AUDIOBOOK"
)

// ParseFormat parses a case-insensitive format name.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToUpper(strings.TrimSpace(value))) {
	case FormatEbook:
		return FormatEbook, nil
	case FormatAudiobook:
		return FormatAudiobook, nil
	}
	return "", fmt.Errorf("unknown format: %s", value)
}

// Source is the store or platform a request points at.
type Source string

const (
	SourceAmazon   Source = "AMAZON"
	SourceAudible  Source = "AUDIBLE"
	SourceKindle   Source = "KINDLE"
	SourceScribd   Source = "SCRIBD"
	SourceStorytel Source = "STORYTEL"
	SourceArchive  Source = "ARCHIVE"
)

// ParseSource parses a case-insensitive source name.
func ParseSource(value string) (Source, error) {
	switch Source(strings.ToUpper(strings.TrimSpace(value))) {
	case SourceAmazon:
		return SourceAmazon, nil
	case SourceAudible:
		return SourceAudible, nil
	case SourceKindle:
		return SourceKindle, nil
	case SourceScribd:
		return SourceScribd, nil
	case SourceStorytel:
		return SourceStorytel, nil
	case SourceArchive:
		return SourceArchive, nil
	}
	return "", fmt.Errorf("unknown source: %s", value)
}

// ParseSources parses a comma-separated source list, skipping blanks.
func ParseSources(value string) ([]Source, error) {
	var sources []Source
	for _, part := range strings.Split(value, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		source, err := ParseSource(part)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, nil
}

// JoinSources renders sources as the comma-separated form used in settings storage.
func JoinSources(sources []Source) string {
	parts := make([]string, len(sources))
	for i, source := range sources {
		parts[i] = string(source)
	}
	return strings.Join(parts, ",")
}

// Role is a user's authorization level in a chat.
type Role int

const (
	RoleUser Role = iota
	RoleContributor
	RoleAdmin
	RoleSuperAdmin
)

func (r Role) String() string {
	switch r {
	case RoleContributor:
		return "CONTRIBUTOR"
	case RoleAdmin:
		return "ADMIN"
	case RoleSuperAdmin:
		return "SUPER_ADMIN"
	default:
		return "USER"
	}
}

// AtLeast reports whether r grants everything the required role grants.
func (r Role) AtLeast(required Role) bool {
	return r >= required
}

// ParseRole parses a case-insensitive role name, defaulting to USER.
func ParseRole(value string) Role {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "CONTRIBUTOR":
		return RoleContributor
	case "ADMIN":
		return RoleAdmin
	case "SUPER_ADMIN", "SUPERADMIN":
		return RoleSuperAdmin
	default:
		return RoleUser
	}
}

// AuditRole describes in which capacity a user acted on a request.
type AuditRole string

const (
	AuditCreator     AuditRole = "CREATOR"
	AuditContributor AuditRole = "CONTRIBUTOR"
)

// Action is a contributor button action on a request card.
type Action string

const (
	ActionConfirm Action = "CONFIRM"
	ActionDone    Action = "DONE"
	ActionPending Action = "PENDING"
	ActionPause   Action = "PAUSE"
	ActionCancel  Action = "CANCEL"
	ActionRemove  Action = "REMOVE"
)

// Description returns the wording shown on confirmation prompts.
func (a Action) Description() string {
	switch a {
	case ActionConfirm:
		return "confirm"
	case ActionDone:
		return "mark as done"
	case ActionPending:
		return "mark as pending"
	case ActionPause:
		return "mark as paused"
	case ActionCancel:
		return "cancel"
	case ActionRemove:
		return "remove"
	}
	return string(a)
}

// Status maps a status-changing action to its target status.
// The second return is false for actions that do not set a status (REMOVE, CONFIRM).
func (a Action) Status() (Status, bool) {
	switch a {
	case ActionDone:
		return StatusResolved, true
	case ActionPending:
		return StatusPending, true
	case ActionPause:
		return StatusPaused, true
	case ActionCancel:
		return StatusCancelled, true
	}
	return "", false
}

// ParseAction parses a case-insensitive action name.
func ParseAction(value string) (Action, error) {
	switch Action(strings.ToUpper(strings.TrimSpace(value))) {
	case ActionConfirm:
		return ActionConfirm, nil
	case ActionDone:
		return ActionDone, nil
	case ActionPending:
		return ActionPending, nil
	case ActionPause:
		return ActionPause, nil
	case ActionCancel:
		return ActionCancel, nil
	case ActionRemove:
		return ActionRemove, nil
	}
	return "", fmt.Errorf("unknown action: %s", value)
}
