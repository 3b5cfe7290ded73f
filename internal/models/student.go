package models

import "time"

// Student represents an applicant with an academic record. The record is
// captured at registration; the eligibility gate only ever reads a snapshot
// of it.
type Student struct {
	ID              string        `db:"id" json:"id"`
	UserID          string        `db:"user_id" json:"user_id"`
	FullName        string        `db:"full_name" json:"full_name"`
	Email           string        `db:"email" json:"email"`
	AcademicRecords SubjectRecord `db:"academic_records" json:"academic_records"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates search parameters for listing students.
type StudentFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
