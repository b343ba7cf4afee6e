package domain

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// ErrorCode classifies pipeline failures for callers and logs.
type ErrorCode string

const (
	CodeFileParse     ErrorCode = "file_parse"
	CodeTypeDetection ErrorCode = "type_detection"
	CodeValidation    ErrorCode = "validation"
	CodeNormalization ErrorCode = "normalization"
	CodeDatabase      ErrorCode = "database"
)

// PipelineError is a structural ingestion failure. Per-row failures are never
// wrapped in it; they are aggregated by the orchestrator instead.
type PipelineError struct {
	Code      ErrorCode
	DatasetID snowflake.ID
	Message   string
	Err       error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func NewFileParseError(datasetID snowflake.ID, message string, err error) *PipelineError {
	return &PipelineError{Code: CodeFileParse, DatasetID: datasetID, Message: message, Err: err}
}

func NewTypeDetectionError(datasetID snowflake.ID, message string, err error) *PipelineError {
	return &PipelineError{Code: CodeTypeDetection, DatasetID: datasetID, Message: message, Err: err}
}

func NewValidationError(datasetID snowflake.ID, message string) *PipelineError {
	return &PipelineError{Code: CodeValidation, DatasetID: datasetID, Message: message}
}

func NewNormalizationError(datasetID snowflake.ID, message string, err error) *PipelineError {
	return &PipelineError{Code: CodeNormalization, DatasetID: datasetID, Message: message, Err: err}
}

func NewDatabaseError(datasetID snowflake.ID, message string, err error) *PipelineError {
	return &PipelineError{Code: CodeDatabase, DatasetID: datasetID, Message: message, Err: err}
}

// CodeOf returns the pipeline error code, or empty when err is not one.
func CodeOf(err error) ErrorCode {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

var (
	ErrDatasetNotFound  = errors.New("dataset_not_found")
	ErrAccountMismatch  = errors.New("dataset_account_mismatch")
	ErrDatasetNotQueued = errors.New("dataset_not_queued")
)
