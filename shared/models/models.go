package models

import "time"

// Member is a present account in the registry.
type Member struct {
	Account string    `json:"account"`
	AddedBy string    `json:"addedBy"`
	AddedAt time.Time `json:"addedTimestamp"`
}

// Activity is the read-side projection of one emitted registry event.
type Activity struct {
	EventID   string    `json:"id"`
	Type      string    `json:"type"`
	Account   string    `json:"account"`
	Caller    string    `json:"caller"`
	Timestamp time.Time `json:"timestamp"`
}
