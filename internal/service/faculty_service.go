package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/careerplatform/admissions-api/internal/models"
	appErrors "github.com/careerplatform/admissions-api/pkg/errors"
)

type facultyRepository interface {
	ListByInstitution(ctx context.Context, institutionID string) ([]models.Faculty, error)
	FindByID(ctx context.Context, id string) (*models.Faculty, error)
	Create(ctx context.Context, faculty *models.Faculty) error
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
}

// FacultyRequest describes faculty create/rename payload.
type FacultyRequest struct {
	Name string `json:"name" validate:"required"`
}

// FacultyService manages per-institution faculties.
type FacultyService struct {
	repo      facultyRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFacultyService constructs FacultyService.
func NewFacultyService(repo facultyRepository, validate *validator.Validate, logger *zap.Logger) *FacultyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FacultyService{repo: repo, validator: validate, logger: logger}
}

// List returns the faculties of the actor's institution.
func (s *FacultyService) List(ctx context.Context, actor *models.JWTClaims) ([]models.Faculty, error) {
	institutionID, err := facultyScope(actor)
	if err != nil {
		return nil, err
	}
	faculties, err := s.repo.ListByInstitution(ctx, institutionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faculties")
	}
	return faculties, nil
}

// Create adds a faculty to the actor's institution.
func (s *FacultyService) Create(ctx context.Context, actor *models.JWTClaims, req FacultyRequest) (*models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty payload")
	}
	institutionID, err := facultyScope(actor)
	if err != nil {
		return nil, err
	}
	faculty := &models.Faculty{InstitutionID: institutionID, Name: req.Name}
	if err := s.repo.Create(ctx, faculty); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create faculty")
	}
	return faculty, nil
}

// Rename updates a faculty name.
func (s *FacultyService) Rename(ctx context.Context, actor *models.JWTClaims, id string, req FacultyRequest) (*models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty payload")
	}
	faculty, err := s.ownedFaculty(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Rename(ctx, faculty.ID, req.Name); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rename faculty")
	}
	faculty.Name = req.Name
	return faculty, nil
}

// Delete removes a faculty.
func (s *FacultyService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	faculty, err := s.ownedFaculty(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, faculty.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete faculty")
	}
	return nil
}

func (s *FacultyService) ownedFaculty(ctx context.Context, actor *models.JWTClaims, id string) (*models.Faculty, error) {
	institutionID, err := facultyScope(actor)
	if err != nil {
		return nil, err
	}
	faculty, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	if actor.Role != models.RoleAdmin && faculty.InstitutionID != institutionID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "faculty belongs to another institution")
	}
	return faculty, nil
}

func facultyScope(actor *models.JWTClaims) (string, error) {
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
