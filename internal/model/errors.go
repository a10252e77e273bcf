package model

import "fmt"

// ValidationError reports a fetched document that lacks a required field.
// The document is dropped; ingestion continues.
type ValidationError struct {
	DocumentID string
	Name       string
	Field      string
}

func (e *ValidationError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("document %q (%s): missing or invalid %s", e.DocumentID, e.Name, e.Field)
	}
	return fmt.Sprintf("document %q: missing or invalid %s", e.DocumentID, e.Field)
}
