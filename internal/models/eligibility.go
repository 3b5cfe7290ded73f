package models

// Reasons attached to unmet subject outcomes.
const (
	ReasonNoRecordForSubject = "no record for subject"
	ReasonGradeBelowMinimum  = "grade below minimum"
	ReasonNoAcademicRecord   = "no academic record on file"
)

// SubjectOutcome is the per-subject diagnostic of an eligibility check.
type SubjectOutcome struct {
	Subject  string `json:"subject"`
	Required Grade  `json:"required"`
	Actual   *Grade `json:"actual,omitempty"`
	Met      bool   `json:"met"`
	Reason   string `json:"reason,omitempty"`
}

// EligibilityResult reports whether a student satisfies a course's
// requirements, with one outcome per required subject in deterministic
// (sorted) order.
type EligibilityResult struct {
	Eligible bool             `json:"eligible"`
	Subjects []SubjectOutcome `json:"subjects"`
}
