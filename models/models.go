// Package models defines the core data structures used throughout the application.
package models

import "time"

// Reference identifies a hosted repository by owner and name
type Reference struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
	// Raw is the URL the reference was parsed from
	Raw string `json:"url"`
}

// Slug returns the "owner/name" form of the reference
func (r Reference) Slug() string {
	return r.Owner + "/" + r.Name
}

// Payload is the repository metadata shown on a card
type Payload struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Stars       int     `json:"stars"`
	Forks       int     `json:"forks"`
	Language    *string `json:"language,omitempty"`
}

// Snapshot is a recorded successful fetch
type Snapshot struct {
	ID          int       `db:"id" json:"id"`
	Owner       string    `db:"owner" json:"owner"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Language    string    `db:"language" json:"language"`
	Stars       int       `db:"stars_count" json:"stars_count"`
	Forks       int       `db:"forks_count" json:"forks_count"`
	FetchedAt   time.Time `db:"fetched_at" json:"fetched_at"`
}

// NewSnapshot builds a snapshot row from a fetched payload.
func NewSnapshot(ref Reference, p Payload, fetchedAt time.Time) Snapshot {
	s := Snapshot{
		Owner:     ref.Owner,
		Name:      ref.Name,
		Stars:     p.Stars,
		Forks:     p.Forks,
		FetchedAt: fetchedAt,
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Language != nil {
		s.Language = *p.Language
	}
	return s
}

// PaginationParams represents parameters for paginated queries
type PaginationParams struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// NewPaginationParams creates a new PaginationParams with validated values.
// If page or pageSize are less than 1, they will be set to their default values.
func NewPaginationParams(page, pageSize int) PaginationParams {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return PaginationParams{
		Page:     page,
		PageSize: pageSize,
	}
}

// Offset returns the row offset for the current page
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}
