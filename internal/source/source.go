// Package source defines the place-search and image-search collaborators of
// the ingestion pipeline and the HTTP plumbing their adapters share.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/placecrawl/internal/model"
)

// PlaceSearcher returns one page of raw place documents for a keyword
type PlaceSearcher interface {
	Name() string
	Search(ctx context.Context, query string, page int) (*model.SearchPage, error)
}

// ImageSearcher returns up to count image URLs for a query
type ImageSearcher interface {
	SearchImages(ctx context.Context, query string, count int) ([]string, error)
}

// ErrEmptyQuery is returned when a search is attempted with a blank query
var ErrEmptyQuery = errors.New("empty query")

// RequestError reports an upstream call that failed after retries
type RequestError struct {
	Source     string
	Op         string // search or image
	Query      string
	Page       int
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *RequestError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %q", e.Source, e.Op, e.Query)
	if e.Page > 0 {
		fmt.Fprintf(&b, " page %d", e.Page)
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ValidateQuery trims q and rejects it when blank
func ValidateQuery(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", ErrEmptyQuery
	}
	return q, nil
}
