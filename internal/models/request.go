// Package models holds the shared domain types of the request tracker.
package models

import (
	"fmt"
	"time"
)

// RequestKey identifies a request by the message that created it and the group it lives in.
type RequestKey struct {
	MessageID int64
	GroupID   int64
}

func (k RequestKey) String() string {
	return fmt.Sprintf("%d/%d", k.GroupID, k.MessageID)
}

// Request is a tracked submission with a lifecycle status.
//
// Invariants: ResolvedDate is set iff Status == RESOLVED; Contributor is set
// only while Status == RESOLVED.
type Request struct {
	Key          RequestKey
	UserID       int64
	Status       Status
	Format       Format
	Source       Source
	OtherTags    string
	Link         string
	Content      string
	RequestDate  time.Time
	ResolvedDate *time.Time
	Contributor  *int64
}

// UserRequest is one append-only audit row describing an action on a request.
type UserRequest struct {
	ID      string
	UserID  int64
	Request RequestKey
	Role    AuditRole
	Action  string
	Date    time.Time
}

// Group is a chat where requests are tracked, with its moderation policy.
type Group struct {
	ID                       int64
	Name                     string
	RequestLimitPerDay       int
	AudiobookDaysWait        int
	EnglishAudiobookDaysWait int
	AllowedSources           []Source
	NoRepeatSources          []Source
	Enabled                  bool
}

// AllowsSource reports whether the group accepts requests for the source.
// An empty allow-list accepts everything.
func (g Group) AllowsSource(source Source) bool {
	if len(g.AllowedSources) == 0 {
		return true
	}
	for _, allowed := range g.AllowedSources {
		if allowed == source {
			return true
		}
	}
	return false
}

// NoRepeat reports whether the source is subject to the duplicate check.
func (g Group) NoRepeat(source Source) bool {
	for _, s := range g.NoRepeatSources {
		if s == source {
			return true
		}
	}
	return false
}
