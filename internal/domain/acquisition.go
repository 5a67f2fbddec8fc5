package domain

import (
	"fmt"
	"strings"
	"time"
)

// Acquisition represents one collectible/inventory item.
//
// The image payload itself lives in the blob store; the record only
// carries the public address the image store handed back on upload.
type Acquisition struct {
	// ID is generated server-side at creation and never changes.
	ID string `json:"id"`

	// Name is a non-empty label.
	Name string `json:"name"`

	Description string `json:"description"`

	// ImageURL is set by the image store, never by clients.
	ImageURL string `json:"imageUrl"`

	// DateAcquired is client supplied and always kept in UTC.
	DateAcquired time.Time `json:"dateAcquired"`

	// Source is free-form provenance text.
	Source string `json:"source"`

	// Tags never contains empty strings. Encoded as [] when empty.
	Tags []string `json:"tags"`
}

// Patch is a sparse set of field changes. A nil field means "leave unchanged".
type Patch struct {
	Name         *string
	Description  *string
	ImageURL     *string
	DateAcquired *time.Time
	Source       *string
	Tags         *[]string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil &&
		p.Description == nil &&
		p.ImageURL == nil &&
		p.DateAcquired == nil &&
		p.Source == nil &&
		p.Tags == nil
}

// Apply returns a copy of a with the patched fields replaced.
func (p Patch) Apply(a Acquisition) Acquisition {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.ImageURL != nil {
		a.ImageURL = *p.ImageURL
	}
	if p.DateAcquired != nil {
		a.DateAcquired = p.DateAcquired.UTC()
	}
	if p.Source != nil {
		a.Source = *p.Source
	}
	if p.Tags != nil {
		a.Tags = append([]string{}, (*p.Tags)...)
	}
	return a
}

// ParseTags splits a comma-separated list, trims every entry and drops empty ones.
// The result is never nil.
func ParseTags(raw string) []string {
	tags := make([]string, 0, strings.Count(raw, ",")+1)
	for _, part := range strings.Split(raw, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Accepted layouts for dateAcquired, tried in order.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses an ISO-8601 timestamp. Values without a zone are taken as UTC.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("dateAcquired is empty: %w", ErrInvalidInput)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("dateAcquired %q is not an ISO-8601 timestamp: %w", raw, ErrInvalidInput)
}

// FormatDate renders t the way it is persisted and served.
func FormatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
