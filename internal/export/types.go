// Package export renders validation reports as PDF or DOCX.
package export

import (
	"errors"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// Request contains parameters for an export operation
type Request struct {
	IdeaID string
	Format Format
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// ReportIdea holds idea metadata for the report header.
type ReportIdea struct {
	ID        string
	Title     string
	Owner     string
	UpdatedAt time.Time
}

var (
	// ErrNoValidation indicates the idea has not been validated yet.
	ErrNoValidation = errors.New("export: no validation result")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
