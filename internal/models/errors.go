package models

import "strconv"

// ConfigError represents a bad or missing inference configuration setting.
// All config errors are recoverable by correcting the selection and retrying.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return "config: " + e.Field + ": " + e.Message
	}
	return "config: " + e.Message
}

// MissingFieldError creates a ConfigError for a required field that was not provided
func MissingFieldError(field string) error {
	return &ConfigError{Field: field, Message: "required field is missing"}
}

// InvalidCombinationError creates a ConfigError for settings that cannot be used together
func InvalidCombinationError(field string, reason string) error {
	return &ConfigError{Field: field, Message: reason}
}

// QueryErrorKind classifies query failures
type QueryErrorKind string

const (
	QueryErrorBackendUnreachable QueryErrorKind = "backend_unreachable"
	QueryErrorNotReady           QueryErrorKind = "not_ready"
	QueryErrorInvalidRequest     QueryErrorKind = "invalid_request"
)

// QueryError represents a failure while routing or executing a chat query
type QueryError struct {
	Kind    QueryErrorKind
	Err     error
	Message string
}

func (e *QueryError) Error() string {
	if e.Message != "" {
		return "query: " + e.Message
	}
	if e.Err != nil {
		return "query (" + string(e.Kind) + "): " + e.Err.Error()
	}
	return "query: " + string(e.Kind)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// BackendUnreachableError creates a QueryError for an endpoint that did not
// respond within the bounded timeout
func BackendUnreachableError(err error) error {
	return &QueryError{
		Kind:    QueryErrorBackendUnreachable,
		Err:     err,
		Message: "inference backend is unreachable, check the endpoint and try again",
	}
}

// RetrievalNotReadyError creates a QueryError for retrieval requested before
// the vector database finished initializing
func RetrievalNotReadyError() error {
	return &QueryError{
		Kind:    QueryErrorNotReady,
		Message: "vector database is not ready yet, give it a moment and try again",
	}
}

// IngestErrorKind classifies document ingestion failures
type IngestErrorKind string

const (
	IngestErrorStoreNotReady     IngestErrorKind = "store_not_ready"
	IngestErrorUnsupportedFormat IngestErrorKind = "unsupported_format"
	IngestErrorTooManyFiles      IngestErrorKind = "too_many_files"
	IngestErrorEmpty             IngestErrorKind = "empty_document"
)

// IngestError represents a failure while uploading documents to the store
type IngestError struct {
	Kind     IngestErrorKind
	Filename string
	Message  string
}

func (e *IngestError) Error() string {
	if e.Filename != "" {
		return "ingest (" + e.Filename + "): " + e.Message
	}
	return "ingest: " + e.Message
}

// StoreNotReadyError creates a retryable IngestError for uploads attempted
// before the vector database finished initializing
func StoreNotReadyError() error {
	return &IngestError{
		Kind:    IngestErrorStoreNotReady,
		Message: "the vector database may be temporarily busy, give it a moment and try again",
	}
}

// UnsupportedFormatError creates an IngestError for a non-text, non-PDF input
func UnsupportedFormatError(filename string) error {
	return &IngestError{
		Kind:     IngestErrorUnsupportedFormat,
		Filename: filename,
		Message:  "unsupported file format, upload text or PDF documents",
	}
}

// TooManyFilesError creates an IngestError for a batch over the upload limit
func TooManyFilesError(limit int) error {
	return &IngestError{
		Kind:    IngestErrorTooManyFiles,
		Message: "too many files in one batch, upload at most " + strconv.Itoa(limit),
	}
}

// EmptyDocumentError creates an IngestError for a file with no extractable text
func EmptyDocumentError(filename string) error {
	return &IngestError{
		Kind:     IngestErrorEmpty,
		Filename: filename,
		Message:  "no text could be extracted from this document",
	}
}

// ValidationError represents a validation error on a domain model
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
