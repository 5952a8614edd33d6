package models

import "time"

// Play is one entry of the durable play log.
type Play struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"sessionId"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	FilePath  string    `json:"filepath"`
	PlayedAt  time.Time `json:"playedAt"`
}

// PlayCount aggregates plays of one file.
type PlayCount struct {
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	FilePath   string    `json:"filepath"`
	Count      int       `json:"count"`
	LastPlayed time.Time `json:"lastPlayed"`
}
