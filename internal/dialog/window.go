package dialog

import (
	"strings"
	"time"

	"github.com/maazq/expensebot/internal/domain"
)

// WindowFromMessage derives the query time window from period keywords in
// the message: today, yesterday, week, month. Default is today.
func WindowFromMessage(message string, now time.Time) domain.TimeWindow {
	lower := strings.ToLower(message)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case strings.Contains(lower, "yesterday"):
		return domain.TimeWindow{
			Start: startOfDay.AddDate(0, 0, -1),
			End:   startOfDay,
			Label: "yesterday",
		}
	case strings.Contains(lower, "week"):
		return domain.TimeWindow{
			Start: now.AddDate(0, 0, -7),
			End:   now,
			Label: "this week",
		}
	case strings.Contains(lower, "month"):
		return domain.TimeWindow{
			Start: now.AddDate(0, -1, 0),
			End:   now,
			Label: "this month",
		}
	default:
		return domain.TimeWindow{
			Start: startOfDay,
			End:   startOfDay.AddDate(0, 0, 1),
			Label: "today",
		}
	}
}
