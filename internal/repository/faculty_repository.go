package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/careerplatform/admissions-api/internal/models"
)

// FacultyRepository handles persistence of faculties.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository constructs the repository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// ListByInstitution returns an institution's faculties ordered by name.
func (r *FacultyRepository) ListByInstitution(ctx context.Context, institutionID string) ([]models.Faculty, error) {
	const query = `SELECT id, institution_id, name, created_at, updated_at FROM faculties WHERE institution_id = $1 ORDER BY name ASC`
	var faculties []models.Faculty
	if err := r.db.SelectContext(ctx, &faculties, query, institutionID); err != nil {
		return nil, fmt.Errorf("list faculties: %w", err)
	}
	return faculties, nil
}

// FindByID returns a faculty by its ID.
func (r *FacultyRepository) FindByID(ctx context.Context, id string) (*models.Faculty, error) {
	const query = `SELECT id, institution_id, name, created_at, updated_at FROM faculties WHERE id = $1`
	var faculty models.Faculty
	if err := r.db.GetContext(ctx, &faculty, query, id); err != nil {
		return nil, err
	}
	return &faculty, nil
}

// Create persists a new faculty.
func (r *FacultyRepository) Create(ctx context.Context, faculty *models.Faculty) error {
	if faculty.ID == "" {
		faculty.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if faculty.CreatedAt.IsZero() {
		faculty.CreatedAt = now
	}
	faculty.UpdatedAt = now
	const query = `INSERT INTO faculties (id, institution_id, name, created_at, updated_at)
        VALUES (:id, :institution_id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, faculty); err != nil {
		return fmt.Errorf("create faculty: %w", err)
	}
	return nil
}

// Rename updates a faculty name.
func (r *FacultyRepository) Rename(ctx context.Context, id, name string) error {
	const query = `UPDATE faculties SET name = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, name, time.Now().UTC()); err != nil {
		return fmt.Errorf("rename faculty: %w", err)
	}
	return nil
}

// Delete removes a faculty.
func (r *FacultyRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM faculties WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete faculty: %w", err)
	}
	return nil
}
