package models

import "time"

// Course is a programme published by an institution, optionally owned by a
// faculty, with per-subject minimum-grade requirements. An empty requirement
// map means open enrollment.
type Course struct {
	ID            string        `db:"id" json:"id"`
	InstitutionID string        `db:"institution_id" json:"institution_id"`
	FacultyID     *string       `db:"faculty_id" json:"faculty_id,omitempty"`
	Name          string        `db:"name" json:"name"`
	Requirements  SubjectRecord `db:"requirements" json:"requirements"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// CourseDetail enriches Course with institution and faculty names.
type CourseDetail struct {
	Course
	InstitutionName string  `db:"institution_name" json:"institution_name"`
	FacultyName     *string `db:"faculty_name" json:"faculty_name,omitempty"`
}

// CourseFilter captures supported filters for listing courses.
type CourseFilter struct {
	InstitutionID string
	FacultyID     string
	Search        string
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
