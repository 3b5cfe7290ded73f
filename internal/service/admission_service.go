package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/careerplatform/admissions-api/internal/models"
	appErrors "github.com/careerplatform/admissions-api/pkg/errors"
)

type applicationRepository interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Application, error)
	FindDetailByID(ctx context.Context, id string) (*models.ApplicationDetail, error)
	ExistsOpen(ctx context.Context, studentID, courseID string) (bool, error)
	Create(ctx context.Context, application *models.Application) error
	UpdateStatusFrom(ctx context.Context, id string, from, to models.ApplicationStatus, decidedAt time.Time) (bool, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type studentReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

// ApplyCourseRequest describes an application attempt.
type ApplyCourseRequest struct {
	CourseID string `json:"course_id" validate:"required"`
}

// ApplyOutcome is the result of an application attempt. When the student is
// ineligible, Application stays nil and Eligibility carries the per-subject
// diagnostic; nothing is persisted.
type ApplyOutcome struct {
	Application *models.ApplicationDetail `json:"application,omitempty"`
	Eligibility *models.EligibilityResult `json:"eligibility"`
}

// AdmissionService orchestrates the eligibility gate and the application
// state machine. It owns no application state across calls; every operation
// loads fresh snapshots and hands results back to the repository.
type AdmissionService struct {
	apps        applicationRepository
	courses     courseReader
	students    studentReader
	eligibility *EligibilityService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAdmissionService constructs AdmissionService.
func NewAdmissionService(apps applicationRepository, courses courseReader, students studentReader, eligibility *EligibilityService, validate *validator.Validate, logger *zap.Logger) *AdmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if eligibility == nil {
		eligibility = NewEligibilityService(nil)
	}
	return &AdmissionService{apps: apps, courses: courses, students: students, eligibility: eligibility, validator: validate, logger: logger}
}

// Apply runs the eligibility gate and creates a PENDING application when it
// passes. An ineligible pairing returns the diagnostic without writing
// anything.
func (s *AdmissionService) Apply(ctx context.Context, actor *models.JWTClaims, req ApplyCourseRequest) (*ApplyOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	if actor == nil || actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "only students can apply to courses")
	}

	student, err := s.students.FindByUserID(ctx, actor.UserID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	var records models.SubjectRecord
	if student != nil {
		records = student.AcademicRecords
	}
	result, err := s.eligibility.Evaluate(records, course.Requirements)
	if err != nil {
		return nil, err
	}
	if !result.Eligible {
		return &ApplyOutcome{Eligibility: result}, nil
	}
	if student == nil {
		// open-enrollment course but no profile to attach the application to
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
	}

	open, err := s.apps.ExistsOpen(ctx, student.ID, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing applications")
	}
	if open {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an application for this course is already pending or approved")
	}

	application := &models.Application{
		StudentID:     student.ID,
		CourseID:      course.ID,
		InstitutionID: course.InstitutionID,
		Status:        models.ApplicationStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.apps.Create(ctx, application); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}

	detail, err := s.apps.FindDetailByID(ctx, application.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application detail")
	}

	s.logger.Info("application created",
		zap.String("application_id", application.ID),
		zap.String("student_id", student.ID),
		zap.String("course_id", course.ID),
	)
	return &ApplyOutcome{Application: detail, Eligibility: result}, nil
}

// CheckEligibility returns the diagnostic for a student/course pairing
// without creating anything. It backs the catalog's "does not meet
// requirements" display.
func (s *AdmissionService) CheckEligibility(ctx context.Context, actor *models.JWTClaims, courseID string) (*models.EligibilityResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	student, err := s.students.FindByUserID(ctx, actor.UserID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	var records models.SubjectRecord
	if student != nil {
		records = student.AcademicRecords
	}
	return s.eligibility.Evaluate(records, course.Requirements)
}

// Decide applies an approve/reject event to a pending application.
// Eligibility is never re-evaluated here: it was certified when the
// application was created and later requirement edits do not retroactively
// change past decisions. The status write is conditional on the source
// status so two racing staff decisions cannot both win.
func (s *AdmissionService) Decide(ctx context.Context, actor *models.JWTClaims, applicationID string, event models.ApplicationEvent) (*models.ApplicationDetail, error) {
	application, err := s.apps.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}

	next, err := TransitionStatus(application.Status, event, actor, application.InstitutionID)
	if err != nil {
		return nil, err
	}

	decidedAt := time.Now().UTC()
	won, err := s.apps.UpdateStatusFrom(ctx, application.ID, application.Status, next, decidedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update application status")
	}
	if !won {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "application was decided concurrently")
	}

	s.logger.Info("application decided",
		zap.String("application_id", application.ID),
		zap.String("status", string(next)),
		zap.String("actor_id", actor.UserID),
	)

	detail, err := s.apps.FindDetailByID(ctx, application.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application detail")
	}
	return detail, nil
}

// List returns applications visible to the actor. Institute staff only see
// their own institution's applications; students only their own.
func (s *AdmissionService) List(ctx context.Context, actor *models.JWTClaims, filter models.ApplicationFilter) ([]models.ApplicationDetail, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleInstitute:
		if actor.InstitutionID == nil {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "staff account has no institution scope")
		}
		filter.InstitutionID = *actor.InstitutionID
	case models.RoleStudent:
		student, err := s.students.FindByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
			}
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
		}
		filter.StudentID = student.ID
	default:
		return nil, nil, appErrors.ErrForbidden
	}

	applications, total, err := s.apps.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return applications, pagination, nil
}
