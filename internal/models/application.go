package models

import "time"

// ApplicationStatus represents the lifecycle of a course application.
type ApplicationStatus string

// Possible application statuses. PENDING is the only state reachable at
// creation; APPROVED and REJECTED are terminal.
const (
	ApplicationStatusPending  ApplicationStatus = "PENDING"
	ApplicationStatusApproved ApplicationStatus = "APPROVED"
	ApplicationStatusRejected ApplicationStatus = "REJECTED"
)

// ApplicationEvent is a requested status change on an application.
type ApplicationEvent string

// Events institute staff may request on a pending application.
const (
	ApplicationEventApprove ApplicationEvent = "APPROVE"
	ApplicationEventReject  ApplicationEvent = "REJECT"
)

// Application records a student's admission request to a course.
type Application struct {
	ID            string            `db:"id" json:"id"`
	StudentID     string            `db:"student_id" json:"student_id"`
	CourseID      string            `db:"course_id" json:"course_id"`
	InstitutionID string            `db:"institution_id" json:"institution_id"`
	Status        ApplicationStatus `db:"status" json:"status"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	DecidedAt     *time.Time        `db:"decided_at" json:"decided_at,omitempty"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// ApplicationDetail enriches Application with student and course info.
type ApplicationDetail struct {
	Application
	StudentName     string `db:"student_name" json:"student_name"`
	StudentEmail    string `db:"student_email" json:"student_email"`
	CourseName      string `db:"course_name" json:"course_name"`
	InstitutionName string `db:"institution_name" json:"institution_name"`
}

// ApplicationFilter provides filters for listing applications.
type ApplicationFilter struct {
	StudentID     string
	CourseID      string
	InstitutionID string
	Status        ApplicationStatus
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
