package storage

import "time"

func secs(n int64) time.Duration {
	return time.Duration(n) * time.Second
}

func fixedTime() time.Time {
	return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
}
