package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/careerplatform/admissions-api/internal/models"
	appErrors "github.com/careerplatform/admissions-api/pkg/errors"
)

type studentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
}

type userWriter interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// RegisterStudentRequest describes student registration payload. The
// original registration form requires a grade for every recognised subject.
type RegisterStudentRequest struct {
	FullName        string               `json:"full_name" validate:"required"`
	Email           string               `json:"email" validate:"required,email"`
	Password        string               `json:"password" validate:"required,min=6"`
	AcademicRecords models.SubjectRecord `json:"academic_records" validate:"required"`
}

// StudentService manages student registration and profiles.
type StudentService struct {
	repo      studentRepository
	users     userWriter
	auth      *AuthService
	scale     *models.GradeScale
	subjects  []string
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, users userWriter, auth *AuthService, scale *models.GradeScale, recognisedSubjects []string, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if scale == nil {
		scale = models.NewGradeScale(nil)
	}
	subjects := make([]string, 0, len(recognisedSubjects))
	for _, s := range recognisedSubjects {
		subjects = append(subjects, models.CanonicalSubject(s))
	}
	return &StudentService{repo: repo, users: users, auth: auth, scale: scale, subjects: subjects, validator: validate, logger: logger}
}

// Register creates a student account together with its academic record.
func (s *StudentService) Register(ctx context.Context, req RegisterStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	records, err := s.validateRecords(req.AcademicRecords)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         models.RoleStudent,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user account")
	}

	student := &models.Student{
		UserID:          user.ID,
		FullName:        req.FullName,
		Email:           req.Email,
		AcademicRecords: records,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student profile")
	}

	s.logger.Info("student registered", zap.String("student_id", student.ID))
	return student, nil
}

// Profile returns the student profile owned by the authenticated user.
func (s *StudentService) Profile(ctx context.Context, actor *models.JWTClaims) (*models.Student, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	student, err := s.repo.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	return student, nil
}

// validateRecords canonicalizes the record map and checks every recognised
// subject carries a valid grade.
func (s *StudentService) validateRecords(records models.SubjectRecord) (models.SubjectRecord, error) {
	canonical, err := records.Canonicalize()
	if err != nil {
		return nil, err
	}
	for subject, grade := range canonical {
		if !s.scale.Valid(grade) {
			return nil, appErrors.Clone(appErrors.ErrInvalidGrade, fmt.Sprintf("invalid grade %q for %s", grade, subject))
		}
	}
	for _, subject := range s.subjects {
		if _, ok := canonical[subject]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("missing grade for %s", subject))
		}
	}
	return canonical, nil
}
