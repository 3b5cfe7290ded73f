package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/careerplatform/admissions-api/internal/models"
	appErrors "github.com/careerplatform/admissions-api/pkg/errors"
)

type mockCourseRepo struct {
	courses     map[string]*models.Course
	createCalls int
	deleted     []string
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	var result []models.CourseDetail
	for _, course := range m.courses {
		if filter.InstitutionID != "" && filter.InstitutionID != course.InstitutionID {
			continue
		}
		result = append(result, models.CourseDetail{Course: *course})
	}
	return result, len(result), nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if course, ok := m.courses[id]; ok {
		copied := *course
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	if course, ok := m.courses[id]; ok {
		return &models.CourseDetail{Course: *course, InstitutionName: "Institution"}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	m.createCalls++
	if m.courses == nil {
		m.courses = make(map[string]*models.Course)
	}
	course.ID = fmt.Sprintf("course-%d", m.createCalls)
	copied := *course
	m.courses[course.ID] = &copied
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	copied := *course
	m.courses[course.ID] = &copied
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.courses, id)
	return nil
}

type mockFacultyReader struct {
	faculties map[string]*models.Faculty
}

func (m *mockFacultyReader) FindByID(ctx context.Context, id string) (*models.Faculty, error) {
	if faculty, ok := m.faculties[id]; ok {
		return faculty, nil
	}
	return nil, sql.ErrNoRows
}

type mockCacheRepo struct {
	entries     map[string][]byte
	invalidated []string
}

func (m *mockCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (m *mockCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = nil
	return nil
}

func (m *mockCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.invalidated = append(m.invalidated, pattern)
	return nil
}

var recognisedSubjects = []string{"maths", "accounting", "sesotho", "science", "biology", "english"}

func newCourseFixture() (*CourseService, *mockCourseRepo) {
	repo := &mockCourseRepo{courses: map[string]*models.Course{
		"course-own":   {ID: "course-own", InstitutionID: "inst-1", Name: "Computing", Requirements: models.SubjectRecord{"maths": "B"}},
		"course-other": {ID: "course-other", InstitutionID: "inst-2", Name: "Nursing", Requirements: models.SubjectRecord{"biology": "C"}},
	}}
	faculties := &mockFacultyReader{faculties: map[string]*models.Faculty{
		"fac-1": {ID: "fac-1", InstitutionID: "inst-1", Name: "Science"},
		"fac-2": {ID: "fac-2", InstitutionID: "inst-2", Name: "Health"},
	}}
	svc := NewCourseService(repo, faculties, models.NewGradeScale(nil), recognisedSubjects, nil, validator.New(), zap.NewNop())
	return svc, repo
}

func courseStaff(institutionID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "staff-1", Role: models.RoleInstitute, InstitutionID: &institutionID}
}

func TestCourseCreate(t *testing.T) {
	svc, repo := newCourseFixture()

	detail, err := svc.Create(context.Background(), courseStaff("inst-1"), CreateCourseRequest{
		Name:         "Statistics",
		Requirements: models.SubjectRecord{"Maths": "B", "English": "C"},
	})
	require.NoError(t, err)
	assert.Equal(t, "inst-1", detail.InstitutionID)
	assert.Equal(t, 1, repo.createCalls)
	// requirements stored in canonical casing
	stored := repo.courses[detail.ID]
	assert.Equal(t, models.SubjectRecord{"maths": "B", "english": "C"}, stored.Requirements)
}

func TestCourseCreateRejectsUnknownGrade(t *testing.T) {
	svc, repo := newCourseFixture()

	_, err := svc.Create(context.Background(), courseStaff("inst-1"), CreateCourseRequest{
		Name:         "Statistics",
		Requirements: models.SubjectRecord{"maths": "Z"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidGrade.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.createCalls)
}

func TestCourseCreateRejectsUnrecognisedSubject(t *testing.T) {
	svc, _ := newCourseFixture()

	_, err := svc.Create(context.Background(), courseStaff("inst-1"), CreateCourseRequest{
		Name:         "Statistics",
		Requirements: models.SubjectRecord{"astrology": "B"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCourseCreateRejectsSubjectCollision(t *testing.T) {
	svc, _ := newCourseFixture()

	_, err := svc.Create(context.Background(), courseStaff("inst-1"), CreateCourseRequest{
		Name:         "Statistics",
		Requirements: models.SubjectRecord{"Maths": "A", "maths": "B"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSubjectCollision.Code, appErrors.FromError(err).Code)
}

func TestCourseCreateRejectsForeignFaculty(t *testing.T) {
	svc, _ := newCourseFixture()
	foreign := "fac-2"

	_, err := svc.Create(context.Background(), courseStaff("inst-1"), CreateCourseRequest{
		Name:      "Statistics",
		FacultyID: &foreign,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCourseCreateStudentForbidden(t *testing.T) {
	svc, _ := newCourseFixture()
	student := &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}

	_, err := svc.Create(context.Background(), student, CreateCourseRequest{Name: "Statistics"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCourseUpdateForeignCourseForbidden(t *testing.T) {
	svc, _ := newCourseFixture()

	_, err := svc.Update(context.Background(), courseStaff("inst-1"), "course-other", UpdateCourseRequest{Name: "Renamed"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCourseUpdateReplacesRequirements(t *testing.T) {
	svc, repo := newCourseFixture()

	detail, err := svc.Update(context.Background(), courseStaff("inst-1"), "course-own", UpdateCourseRequest{
		Name:         "Computing II",
		Requirements: models.SubjectRecord{"science": "A"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Computing II", detail.Name)
	assert.Equal(t, models.SubjectRecord{"science": "A"}, repo.courses["course-own"].Requirements)
}

func TestCourseDelete(t *testing.T) {
	svc, repo := newCourseFixture()

	require.NoError(t, svc.Delete(context.Background(), courseStaff("inst-1"), "course-own"))
	assert.Equal(t, []string{"course-own"}, repo.deleted)

	err := svc.Delete(context.Background(), courseStaff("inst-1"), "course-own")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseListInvalidatesCacheOnWrite(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]*models.Course{}}
	faculties := &mockFacultyReader{}
	cacheRepo := &mockCacheRepo{}
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := NewCourseService(repo, faculties, models.NewGradeScale(nil), recognisedSubjects, cacheSvc, validator.New(), zap.NewNop())

	_, _, err := svc.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	assert.Len(t, cacheRepo.entries, 1, "list result should be cached")

	_, err = svc.Create(context.Background(), courseStaff("inst-1"), CreateCourseRequest{Name: "Statistics"})
	require.NoError(t, err)
	assert.Equal(t, []string{"catalog:*"}, cacheRepo.invalidated)
}
