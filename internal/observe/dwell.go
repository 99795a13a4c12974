package observe

import (
	"fmt"

	"github.com/dgnsrekt/pagepulse/internal/types"
)

// previousPage records the page the user just left.
type previousPage struct {
	URL         string
	TimeSpentMS int64
	ExitTime    int64
}

// classifyDwell buckets a visit duration. Boundaries are exclusive at the
// top of each bucket: exactly 60s is still short.
func classifyDwell(seconds int64) string {
	switch {
	case seconds <= 60:
		return "short"
	case seconds <= 300:
		return "medium"
	default:
		return "long"
	}
}

// formatDwell renders a duration the way humans read it. The seconds suffix
// is omitted when it is zero.
func formatDwell(seconds int64) string {
	if seconds < 60 {
		return fmt.Sprintf("%d seconds", seconds)
	}
	minutes := seconds / 60
	rem := seconds % 60
	if rem == 0 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	return fmt.Sprintf("%d minutes %d seconds", minutes, rem)
}

// summarizeDwell builds the dwell summary attached to a page-view record.
func summarizeDwell(prev previousPage, entryTime int64) *types.DwellSummary {
	seconds := prev.TimeSpentMS / 1000
	return &types.DwellSummary{
		PreviousURL:        prev.URL,
		TimeSpentMS:        prev.TimeSpentMS,
		TimeSpentSeconds:   seconds,
		TimeSpentFormatted: formatDwell(seconds),
		TimePeriod:         classifyDwell(seconds),
		EntryTime:          entryTime,
		ExitTime:           prev.ExitTime,
	}
}
