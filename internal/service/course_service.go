package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/careerplatform/admissions-api/internal/models"
	appErrors "github.com/careerplatform/admissions-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

type facultyReader interface {
	FindByID(ctx context.Context, id string) (*models.Faculty, error)
}

// CreateCourseRequest describes course creation payload.
type CreateCourseRequest struct {
	Name         string               `json:"name" validate:"required"`
	FacultyID    *string              `json:"faculty_id,omitempty"`
	Requirements models.SubjectRecord `json:"requirements"`
}

// UpdateCourseRequest describes course update payload.
type UpdateCourseRequest struct {
	Name         string               `json:"name" validate:"required"`
	FacultyID    *string              `json:"faculty_id,omitempty"`
	Requirements models.SubjectRecord `json:"requirements"`
}

// CourseService manages the course catalog. Requirement maps are validated
// against the injected grade scale and recognised subject list at write
// time, so the eligibility gate never meets a symbol outside the alphabet
// through this path.
type CourseService struct {
	repo      courseRepository
	faculties facultyReader
	scale     *models.GradeScale
	subjects  map[string]struct{}
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService. recognisedSubjects come from
// configuration shared with student registration.
func NewCourseService(repo courseRepository, faculties facultyReader, scale *models.GradeScale, recognisedSubjects []string, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if scale == nil {
		scale = models.NewGradeScale(nil)
	}
	subjects := make(map[string]struct{}, len(recognisedSubjects))
	for _, s := range recognisedSubjects {
		subjects[models.CanonicalSubject(s)] = struct{}{}
	}
	return &CourseService{repo: repo, faculties: faculties, scale: scale, subjects: subjects, cache: cache, validator: validate, logger: logger}
}

// List returns courses with pagination metadata. The unfiltered public
// catalog page is served from cache when enabled.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	type cachedCatalog struct {
		Courses    []models.CourseDetail `json:"courses"`
		Pagination models.Pagination     `json:"pagination"`
	}

	key := fmt.Sprintf("catalog:%s:%s:%s:%d:%d", filter.InstitutionID, filter.FacultyID, filter.Search, filter.Page, filter.PageSize)
	if s.cache.Enabled() {
		var cached cachedCatalog
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			pagination := cached.Pagination
			return cached.Courses, &pagination, nil
		}
	}

	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
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

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, key, cachedCatalog{Courses: courses, Pagination: *pagination}, 0)
	}
	return courses, pagination, nil
}

// Get returns a single course with institution and faculty names.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return detail, nil
}

// Create publishes a new course for the actor's institution.
func (s *CourseService) Create(ctx context.Context, actor *models.JWTClaims, req CreateCourseRequest) (*models.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	institutionID, err := s.institutionScope(actor)
	if err != nil {
		return nil, err
	}

	requirements, err := s.validateRequirements(req.Requirements)
	if err != nil {
		return nil, err
	}
	if err := s.checkFaculty(ctx, req.FacultyID, institutionID); err != nil {
		return nil, err
	}

	course := &models.Course{
		InstitutionID: institutionID,
		FacultyID:     req.FacultyID,
		Name:          req.Name,
		Requirements:  requirements,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.invalidateCatalog(ctx)

	return s.Get(ctx, course.ID)
}

// Update replaces name, faculty and requirements of an existing course.
// Existing applications keep the decisions made against the requirement
// snapshot they were evaluated with; edits only affect future applications.
func (s *CourseService) Update(ctx context.Context, actor *models.JWTClaims, id string, req UpdateCourseRequest) (*models.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.ownedCourse(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	requirements, err := s.validateRequirements(req.Requirements)
	if err != nil {
		return nil, err
	}
	if err := s.checkFaculty(ctx, req.FacultyID, course.InstitutionID); err != nil {
		return nil, err
	}

	course.Name = req.Name
	course.FacultyID = req.FacultyID
	course.Requirements = requirements
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.invalidateCatalog(ctx)

	return s.Get(ctx, course.ID)
}

// Delete removes a course from the catalog.
func (s *CourseService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	course, err := s.ownedCourse(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, course.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.invalidateCatalog(ctx)
	return nil
}

func (s *CourseService) institutionScope(actor *models.JWTClaims) (string, error) {
	if actor == nil {
		return "", appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleInstitute && actor.Role != models.RoleAdmin {
		return "", appErrors.ErrForbidden
	}
	if actor.InstitutionID == nil {
		return "", appErrors.Clone(appErrors.ErrForbidden, "account has no institution scope")
	}
	return *actor.InstitutionID, nil
}

func (s *CourseService) ownedCourse(ctx context.Context, actor *models.JWTClaims, id string) (*models.Course, error) {
	institutionID, err := s.institutionScope(actor)
	if err != nil {
		return nil, err
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if actor.Role != models.RoleAdmin && course.InstitutionID != institutionID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course belongs to another institution")
	}
	return course, nil
}

func (s *CourseService) validateRequirements(requirements models.SubjectRecord) (models.SubjectRecord, error) {
	canonical, err := requirements.Canonicalize()
	if err != nil {
		return nil, err
	}
	if canonical == nil {
		return models.SubjectRecord{}, nil
	}
	for subject, grade := range canonical {
		if len(s.subjects) > 0 {
			if _, ok := s.subjects[subject]; !ok {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unrecognised subject %q", subject))
			}
		}
		if !s.scale.Valid(grade) {
			return nil, appErrors.Clone(appErrors.ErrInvalidGrade, fmt.Sprintf("invalid grade %q for %s", grade, subject))
		}
	}
	return canonical, nil
}

func (s *CourseService) checkFaculty(ctx context.Context, facultyID *string, institutionID string) error {
	if facultyID == nil || *facultyID == "" {
		return nil
	}
	faculty, err := s.faculties.FindByID(ctx, *facultyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	if faculty.InstitutionID != institutionID {
		return appErrors.Clone(appErrors.ErrValidation, "faculty belongs to another institution")
	}
	return nil
}

func (s *CourseService) invalidateCatalog(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, "catalog:*"); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}
