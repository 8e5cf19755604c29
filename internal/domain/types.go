package domain

import "time"

// Entry is the visit record of one canonical directory path
type Entry struct {
	Path        string    `json:"path"`
	Visits      int64     `json:"visits"`
	LastVisited time.Time `json:"last_visited"`
}

// Scored pairs an entry with the scores it was ranked by
type Scored struct {
	Entry
	TextScore     float64 `json:"text_score"`
	FrecencyScore float64 `json:"frecency"`
	Score         float64 `json:"score"`
}
