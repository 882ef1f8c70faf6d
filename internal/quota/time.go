package quota

import (
	"strconv"
	"strings"
	"time"
)

// ElapsedBetween renders the time between two instants as
// "N days, N hours and N minutes", pluralized, with zero-valued leading units
// omitted. Minutes are always shown when every unit would otherwise be zero.
func ElapsedBetween(from, to time.Time) string {
	elapsed := to.Sub(from)
	if elapsed < 0 {
		elapsed = 0
	}
	days := int64(elapsed / (24 * time.Hour))
	hours := int64(elapsed % (24 * time.Hour) / time.Hour)
	minutes := int64(elapsed % time.Hour / time.Minute)

	var b strings.Builder
	if days > 0 {
		b.WriteString(strconv.FormatInt(days, 10))
		b.WriteString(" day")
		b.WriteString(plural(days))
	}
	if days > 0 && hours > 0 {
		if minutes > 0 {
			b.WriteString(", ")
		} else {
			b.WriteString(" and ")
		}
	}
	if hours > 0 {
		b.WriteString(strconv.FormatInt(hours, 10))
		b.WriteString(" hour")
		b.WriteString(plural(hours))
	}
	if (hours > 0 || days > 0) && minutes > 0 {
		b.WriteString(" and ")
	}
	if minutes > 0 || b.Len() == 0 {
		b.WriteString(strconv.FormatInt(minutes, 10))
		b.WriteString(" minute")
		b.WriteString(plural(minutes))
	}
	return b.String()
}

// ComeBackAgain is the user-facing wording for a rejection with a retry time.
func ComeBackAgain(now, retryAt time.Time) string {
	return "Come back again in " + ElapsedBetween(now, retryAt) + "."
}

func plural(n int64) string {
	if n == 1 {
		return ""
	}
	return "s"
}
