package refresh

import "time"

// DefaultPeriod is the staleness window between two non-forced refreshes.
const DefaultPeriod = 300 * time.Second

// IsDue reports whether a non-forced refresh may run. A zero lastRefreshedAt
// means the coordinator never refreshed successfully.
func IsDue(lastRefreshedAt, now time.Time, period time.Duration) bool {
	if lastRefreshedAt.IsZero() {
		return true
	}
	return now.Sub(lastRefreshedAt) > period
}
