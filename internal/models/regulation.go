package models

import "time"

// Regulation is the root of the taxonomy hierarchy (e.g. "R2021").
type Regulation struct {
	ID                string    `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	NumberOfSemesters int       `db:"number_of_semesters" json:"number_of_semesters"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// RegulationFilter captures list criteria for regulations.
type RegulationFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
