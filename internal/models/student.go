package models

import "time"

// Student represents a learner registered for examinations.
// RollNo is the natural key used by bulk imports to resolve rows.
type Student struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	RollNo     string    `db:"roll_no" json:"roll_no"`
	Department string    `db:"department" json:"department"`
	Class      string    `db:"class" json:"class"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	Department string
	Class      string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
