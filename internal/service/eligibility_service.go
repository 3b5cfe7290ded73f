package service

import (
	"sort"

	"github.com/careerplatform/admissions-api/internal/models"
)

// EligibilityService decides whether a student's academic record satisfies a
// course's subject requirements. Evaluation is a pure computation over the
// snapshots it is handed; it never touches storage and holds no state beyond
// the injected grade scale.
type EligibilityService struct {
	scale *models.GradeScale
}

// NewEligibilityService constructs an EligibilityService.
func NewEligibilityService(scale *models.GradeScale) *EligibilityService {
	if scale == nil {
		scale = models.NewGradeScale(nil)
	}
	return &EligibilityService{scale: scale}
}

// Scale exposes the injected grade scale for collaborators that validate
// grades at write time.
func (s *EligibilityService) Scale() *models.GradeScale {
	return s.scale
}

// Evaluate compares the student record against the requirement map and
// returns a per-subject diagnostic. An empty requirement map is vacuously
// eligible. A nil student record (no profile yet) yields an ineligible
// result, not an error. A requirement grade outside the scale aborts the
// whole evaluation: a course configured with an unknown grade cannot be
// trusted to gate anything.
func (s *EligibilityService) Evaluate(studentRecord, requirement models.SubjectRecord) (*models.EligibilityResult, error) {
	requirement, err := requirement.Canonicalize()
	if err != nil {
		return nil, err
	}
	studentRecord, err = studentRecord.Canonicalize()
	if err != nil {
		return nil, err
	}

	subjects := make([]string, 0, len(requirement))
	for subject := range requirement {
		subjects = append(subjects, subject)
	}
	// map iteration order is random; sort so diagnostics are reproducible
	sort.Strings(subjects)

	result := &models.EligibilityResult{
		Eligible: true,
		Subjects: make([]models.SubjectOutcome, 0, len(subjects)),
	}

	for _, subject := range subjects {
		required := requirement[subject]
		if _, err := s.scale.Rank(required); err != nil {
			return nil, err
		}

		outcome := models.SubjectOutcome{Subject: subject, Required: required}

		if studentRecord == nil {
			outcome.Reason = models.ReasonNoAcademicRecord
			result.Eligible = false
			result.Subjects = append(result.Subjects, outcome)
			continue
		}

		actual, ok := studentRecord[subject]
		if !ok {
			outcome.Reason = models.ReasonNoRecordForSubject
			result.Eligible = false
			result.Subjects = append(result.Subjects, outcome)
			continue
		}

		outcome.Actual = &actual
		met, err := s.scale.AtLeast(actual, required)
		if err != nil {
			return nil, err
		}
		outcome.Met = met
		if !met {
			outcome.Reason = models.ReasonGradeBelowMinimum
			result.Eligible = false
		}
		result.Subjects = append(result.Subjects, outcome)
	}

	return result, nil
}
