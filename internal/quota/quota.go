// Package quota decides whether a new submission is accepted, as a pure
// function of the submitter's history snapshot and the group policy.
package quota

import (
	"strings"
	"time"

	"github.com/shelfmark/shelfmark/internal/models"
)

// Reason codes for rejected submissions.
type Reason string

const (
	ReasonDailyLimit Reason = "DAILY_LIMIT"
	ReasonCooldown   Reason = "FORMAT_COOLDOWN"
	ReasonDuplicate  Reason = "DUPLICATE_SOURCE"
)

// Submission is a candidate request.
type Submission struct {
	UserID    int64
	GroupID   int64
	Format    models.Format
	Source    models.Source
	OtherTags string
	Link      string
	Time      time.Time
}

// LastRequest is the most recent prior audiobook creation by the user.
type LastRequest struct {
	Date      time.Time
	OtherTags string
}

// Snapshot is the read-only slice of history the decision is made over.
// It is fetched before evaluation; concurrent submissions racing the read may
// exceed the daily cap by at most the number of in-flight submissions, which
// is an accepted best-effort bound.
type Snapshot struct {
	CreatedToday  int
	LastAudiobook *LastRequest
	DuplicateOpen bool
}

// Decision is the outcome of Evaluate. RetryAt is zero when no retry time is
// computable (duplicates have none).
type Decision struct {
	Accepted bool
	Reason   Reason
	RetryAt  time.Time
}

// Accept is the accepted decision.
func Accept() Decision {
	return Decision{Accepted: true}
}

// Evaluate applies the checks in fixed order; the first failing check
// determines the rejection reason.
//
//  1. Daily limit: CREATOR rows since local start of day vs the group cap.
//  2. Audiobook cooldown: elapsed time since the prior audiobook request vs
//     the required wait (the english wait when the prior request was tagged
//     english, the default wait otherwise).
//  3. No-repeat source: an open request with the same link already exists.
func Evaluate(snap Snapshot, group models.Group, sub Submission) Decision {
	if snap.CreatedToday >= group.RequestLimitPerDay {
		return Decision{
			Reason:  ReasonDailyLimit,
			RetryAt: StartOfDay(sub.Time).AddDate(0, 0, 1),
		}
	}

	if sub.Format == models.FormatAudiobook && snap.LastAudiobook != nil {
		waitDays := group.AudiobookDaysWait
		if IsEnglish(snap.LastAudiobook.OtherTags) {
			waitDays = group.EnglishAudiobookDaysWait
		}
		retryAt := snap.LastAudiobook.Date.AddDate(0, 0, waitDays)
		if sub.Time.Before(retryAt) {
			return Decision{Reason: ReasonCooldown, RetryAt: retryAt}
		}
	}

	if group.NoRepeat(sub.Source) && snap.DuplicateOpen {
		return Decision{Reason: ReasonDuplicate}
	}

	return Accept()
}

// StartOfDay truncates t to its local calendar day boundary.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// IsEnglish reports whether the free-form tag marks the english language variant.
func IsEnglish(otherTags string) bool {
	return strings.EqualFold(strings.TrimSpace(otherTags), "english")
}
