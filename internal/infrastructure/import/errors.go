package csvimport

import (
	"errors"
	"fmt"
)

// Row error codes
const (
	ErrCodeRequiredField = "IMPORT_REQUIRED_FIELD"
	ErrCodeInvalidType   = "IMPORT_INVALID_TYPE"
	ErrCodeInvalidLength = "IMPORT_INVALID_LENGTH"
	ErrCodeInvalidRange  = "IMPORT_INVALID_RANGE"
	ErrCodeInconsistent  = "IMPORT_INCONSISTENT_GROUP"
	ErrCodeRejected      = "IMPORT_REJECTED"
)

// ErrFile matches every error that rejects the upload as a whole.
var ErrFile = errors.New("invalid CSV file")

type fileError string

func (e fileError) Error() string        { return "CSV " + string(e) }
func (e fileError) Is(target error) bool { return target == ErrFile }

const (
	ErrEmptyFile       fileError = "file is empty"
	ErrInvalidEncoding fileError = "file is not valid UTF-8"
	ErrMissingHeader   fileError = "file missing header row"
	ErrNoDataRows      fileError = "file contains no data rows"
	ErrTooManyRows     fileError = "file exceeds the row limit"
)

// RowError points at one cell, or a whole row when Column is empty.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
}

const defaultErrorLimit = 100

// ErrorCollection reports up to limit row errors and counts every one.
// Rows that failed are remembered even after the limit is hit.
type ErrorCollection struct {
	limit   int
	kept    []RowError
	total   int
	badRows map[int]bool
}

func NewErrorCollection(limit int) *ErrorCollection {
	if limit <= 0 {
		limit = defaultErrorLimit
	}
	return &ErrorCollection{limit: limit, badRows: map[int]bool{}}
}

func (ec *ErrorCollection) Add(err RowError) {
	ec.total++
	ec.badRows[err.Row] = true
	if len(ec.kept) < ec.limit {
		ec.kept = append(ec.kept, err)
	}
}

func (ec *ErrorCollection) Errors() []RowError { return ec.kept }

func (ec *ErrorCollection) TotalCount() int { return ec.total }

func (ec *ErrorCollection) HasErrors() bool { return ec.total > 0 }

func (ec *ErrorCollection) RowHasError(line int) bool { return ec.badRows[line] }

// IsTruncated reports whether Errors dropped anything.
func (ec *ErrorCollection) IsTruncated() bool { return ec.total > len(ec.kept) }
