package models

import "time"

// Branch is a discipline under a regulation (e.g. "CSE").
type Branch struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Code         string    `db:"code" json:"code"`
	RegulationID string    `db:"regulation_id" json:"regulation_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// BranchFilter captures list criteria for branches.
type BranchFilter struct {
	RegulationID string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
