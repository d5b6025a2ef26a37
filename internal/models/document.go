package models

import "time"

// DocumentStatus tracks a document through its processing lifecycle.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "PENDING"
	StatusUploading  DocumentStatus = "UPLOADING"
	StatusProcessing DocumentStatus = "PROCESSING"
	StatusCompleted  DocumentStatus = "COMPLETED"
	StatusFailed     DocumentStatus = "FAILED"
)

// validTransitions encodes the status state machine. Terminal states have
// no outgoing edges; a new upload replaces the document instead.
var validTransitions = map[DocumentStatus][]DocumentStatus{
	StatusPending:    {StatusUploading, StatusProcessing},
	StatusUploading:  {StatusProcessing, StatusCompleted, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
}

// IsTerminal reports whether the status admits no further transitions.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsValid reports whether the value is a known status.
func (s DocumentStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransitionTo reports whether the state machine permits moving from s
// to next.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Document is an uploaded file tracked through processing.
//
// ExternalID is the identifier the processing engine assigns once it has
// ingested the document. It is set at most once, by the status callback.
type Document struct {
	ID              int64          `db:"id" json:"id"`
	UserID          string         `db:"user_id" json:"-"`
	FileName        string         `db:"file_name" json:"file_name"`
	StorageFileName string         `db:"storage_file_name" json:"-"`
	ContentType     string         `db:"content_type" json:"content_type"`
	SizeBytes       int64          `db:"size_bytes" json:"size_bytes"`
	Status          DocumentStatus `db:"status" json:"status"`
	ExternalID      *string        `db:"external_id" json:"pythonDocumentId,omitempty"`
	ErrorMessage    *string        `db:"error_message" json:"error_message,omitempty"`
	UploadDate      time.Time      `db:"upload_date" json:"upload_date"`
}

// StatusUpdate is a single state-machine transition reported by the
// processing engine through the callback endpoint.
type StatusUpdate struct {
	DocumentID   int64
	Status       DocumentStatus
	ExternalID   *string
	ErrorMessage *string
}
