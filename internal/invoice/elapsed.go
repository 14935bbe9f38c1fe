package invoice

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"
)

// ElapsedTime renders how long ago createdAt happened, relative to now, in the
// short Spanish form used by the review list ("Hace 3m 12s"). Future times
// render as "Ahora"; unparseable input renders as "".
func ElapsedTime(createdAt string, now time.Time) string {
	if createdAt == "" {
		return ""
	}

	created, err := dateparse.ParseAny(createdAt)
	if err != nil {
		return ""
	}

	diff := now.Sub(created)
	if diff < 0 {
		return "Ahora"
	}

	seconds := int64(diff / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 0:
		return fmt.Sprintf("Hace %dd %dh", days, hours%24)
	case hours > 0:
		return fmt.Sprintf("Hace %dh %dm", hours, minutes%60)
	case minutes > 0:
		return fmt.Sprintf("Hace %dm %ds", minutes, seconds%60)
	default:
		return fmt.Sprintf("Hace %ds", seconds)
	}
}
