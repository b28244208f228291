package app

import (
	"fmt"
	"strings"
)

type (
	// ValidationError lists the request fields that were missing or blank.
	ValidationError struct {
		Fields []string
	}

	// IngestError reports which file of a batch failed. Files before it
	// were already uploaded and stay in the bucket.
	IngestError struct {
		Index    int
		Filename string
		Uploaded []string
		Err      error
	}
)

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("file %d (%s): %v", e.Index, e.Filename, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}
