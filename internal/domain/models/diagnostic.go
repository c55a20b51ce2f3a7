package models

import (
	"fmt"
	"strings"
)

// DiagnosticKind enumerates the non-fatal conditions reported alongside a summary.
type DiagnosticKind string

const (
	DiagnosticUnmappedRegion DiagnosticKind = "unmapped_region"
	DiagnosticEmptyDataset   DiagnosticKind = "empty_dataset"
	DiagnosticInvalidRow     DiagnosticKind = "invalid_row"
)

// Diagnostic describes a recoverable condition the caller may want to display.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Region  string         `json:"region,omitempty"`
	Row     int            `json:"row,omitempty"`
	Column  string         `json:"column,omitempty"`
	Message string         `json:"message"`
}

// SchemaError reports logical columns that are missing from a tabular source.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}
