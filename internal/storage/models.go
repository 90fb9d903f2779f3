package storage

import "time"

// GameRecord is one finished game as kept in the history database
type GameRecord struct {
	GameID       string
	BaseURL      string
	Start        string
	Target       string
	Found        bool
	Hops         int
	Path         []string
	Rounds       int
	PagesFetched int
	SearchMs     int64
	CreatedAt    time.Time
}
