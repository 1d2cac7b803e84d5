package repositories

import "time"

// Time limits are stored as integer milliseconds to keep the column portable.

func durationToMillis(d time.Duration) int64 {
	return d.Milliseconds()
}

func millisToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
