package goldprice

import (
	"fmt"
	"time"
)

// FormatTimeAgo renders then relative to now as a coarse label. Elapsed
// durations are floored before bucketing. Timestamps more than a minute in
// the future fall back to "today at HH:MM" on the same calendar day and
// "earlier" otherwise. A zero then renders as "earlier".
func FormatTimeAgo(now, then time.Time) string {
	if then.IsZero() {
		return "earlier"
	}

	diff := now.Sub(then)
	if diff < -time.Minute {
		if sameDay(now, then.In(now.Location())) {
			return "today at " + then.In(now.Location()).Format("15:04")
		}
		return "earlier"
	}

	minutes := int64(diff / time.Minute)
	hours := int64(diff / time.Hour)
	days := int64(diff / (24 * time.Hour))

	switch {
	case minutes < 1:
		return "just now"
	case minutes < 60:
		return fmt.Sprintf("%d minutes ago", minutes)
	case hours < 24:
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case days == 1:
		return "yesterday"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
