package models

import "time"

// QaInteraction is an immutable record of one answered question.
type QaInteraction struct {
	ID         int64     `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"-"`
	DocumentID int64     `db:"document_id" json:"document_id"`
	Question   string    `db:"question" json:"question"`
	Answer     string    `db:"answer" json:"answer"`
	Timestamp  time.Time `db:"timestamp" json:"timestamp"`
}

// Source describes one passage the engine used to ground an answer.
type Source struct {
	Text           string                 `json:"text"`
	Metadata       map[string]interface{} `json:"metadata"`
	RelevanceScore float64                `json:"relevance_score"`
	SectionType    string                 `json:"section_type"`
}

// ProcessingInfo carries engine-side diagnostics for a query.
type ProcessingInfo struct {
	ChunksUsed        int    `json:"chunks_used"`
	QuestionProcessed string `json:"question_processed"`
	ModelUsed         string `json:"model_used"`
}

// QueryResponse is the engine's answer payload for a question. It is
// returned to callers verbatim and serialized as-is into the query cache.
type QueryResponse struct {
	Answer         string          `json:"answer"`
	Sources        []Source        `json:"sources"`
	Success        bool            `json:"success"`
	DocumentID     string          `json:"document_id"`
	ProcessingInfo *ProcessingInfo `json:"processing_info,omitempty"`
}
