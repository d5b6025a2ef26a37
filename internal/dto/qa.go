package dto

import "time"

// QaHistoryItem is one prior question/answer pair for a document.
type QaHistoryItem struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}
