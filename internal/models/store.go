package models

import "time"

// StoreStatus represents the readiness of the vector database
type StoreStatus string

const (
	StoreStatusNotReady StoreStatus = "not_ready"
	StoreStatusReady    StoreStatus = "ready"
	StoreStatusError    StoreStatus = "error"
)

// IsValid checks if the store status is known
func (s StoreStatus) IsValid() bool {
	switch s {
	case StoreStatusNotReady, StoreStatusReady, StoreStatusError:
		return true
	default:
		return false
	}
}

// String returns the string representation of the store status
func (s StoreStatus) String() string {
	return string(s)
}

// DocumentStoreState is the externally visible state of the vector database.
// It transitions not_ready -> ready once backend setup completes, and is
// cleared separately from any chat session.
type DocumentStoreState struct {
	Status        StoreStatus `json:"status"`
	DocumentCount int         `json:"document_count"`
	LastError     string      `json:"last_error,omitempty"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// CanRetrieve reports whether retrieval-augmented queries are permitted:
// the store must be ready and hold at least one document.
func (st DocumentStoreState) CanRetrieve() bool {
	return st.Status == StoreStatusReady && st.DocumentCount > 0
}
