package repo

import (
	"time"

	"threadshelf/internal/model"
)

// SeedThreads is the thread collection used when nothing has been stored yet.
func SeedThreads(now time.Time) []model.Thread {
	return []model.Thread{
		{ID: "thread-1", Title: "Q3 marketing campaign", LastUpdatedAt: now},
		{ID: "thread-2", Title: "New website launch", LastUpdatedAt: now.Add(-24 * time.Hour)},
		{ID: "thread-3", Title: "User feedback analysis", LastUpdatedAt: now.Add(-48 * time.Hour)},
	}
}
