package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerplatform/admissions-api/internal/models"
)

func newApplicationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestApplicationRepositoryList(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "course_id", "institution_id", "status", "created_at", "decided_at", "updated_at", "student_name", "student_email", "course_name", "institution_name"}).
		AddRow("app-1", "stu-1", "course-1", "inst-1", "PENDING", time.Now(), nil, time.Now(), "Lineo M", "lineo@example.com", "Computing", "NUL")
	mock.ExpectQuery("SELECT a.id, a.student_id").
		WithArgs("inst-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("inst-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.ApplicationFilter{InstitutionID: "inst-1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "app-1", list[0].ID)
	assert.Equal(t, "Lineo M", list[0].StudentName)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec("INSERT INTO applications").
		WithArgs(sqlmock.AnyArg(), "stu-1", "course-1", "inst-1", "PENDING", sqlmock.AnyArg(), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	application := &models.Application{StudentID: "stu-1", CourseID: "course-1", InstitutionID: "inst-1"}
	require.NoError(t, repo.Create(context.Background(), application))
	assert.NotEmpty(t, application.ID)
	assert.Equal(t, models.ApplicationStatusPending, application.Status)
	assert.False(t, application.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryExistsOpen(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM applications WHERE student_id = $1 AND course_id = $2 AND status IN ($3, $4) LIMIT 1")).
		WithArgs("stu-1", "course-1", "PENDING", "APPROVED").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	open, err := repo.ExistsOpen(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)
	assert.True(t, open)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM applications WHERE student_id = $1 AND course_id = $2 AND status IN ($3, $4) LIMIT 1")).
		WithArgs("stu-2", "course-1", "PENDING", "APPROVED").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	open, err = repo.ExistsOpen(context.Background(), "stu-2", "course-1")
	require.NoError(t, err)
	assert.False(t, open)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryUpdateStatusFromWins(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	decidedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications SET status = $3, decided_at = $4, updated_at = $4 WHERE id = $1 AND status = $2")).
		WithArgs("app-1", "PENDING", "APPROVED", decidedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.UpdateStatusFrom(context.Background(), "app-1", models.ApplicationStatusPending, models.ApplicationStatusApproved, decidedAt)
	require.NoError(t, err)
	assert.True(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A concurrent decision moves the row out of PENDING first; the conditional
// write then matches zero rows and must report a loss, not an error.
func TestApplicationRepositoryUpdateStatusFromLosesRace(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	decidedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications SET status = $3, decided_at = $4, updated_at = $4 WHERE id = $1 AND status = $2")).
		WithArgs("app-1", "PENDING", "REJECTED", decidedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.UpdateStatusFrom(context.Background(), "app-1", models.ApplicationStatusPending, models.ApplicationStatusRejected, decidedAt)
	require.NoError(t, err)
	assert.False(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newApplicationRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery("SELECT id, student_id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), "missing")
	require.Error(t, err)
}
