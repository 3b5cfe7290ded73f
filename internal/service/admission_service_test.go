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

type mockApplicationRepo struct {
	applications map[string]*models.Application
	createCalls  int
	casLoses     bool
}

func (m *mockApplicationRepo) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	var result []models.ApplicationDetail
	for _, app := range m.applications {
		if filter.StudentID != "" && filter.StudentID != app.StudentID {
			continue
		}
		if filter.InstitutionID != "" && filter.InstitutionID != app.InstitutionID {
			continue
		}
		if filter.Status != "" && filter.Status != app.Status {
			continue
		}
		result = append(result, models.ApplicationDetail{Application: *app})
	}
	return result, len(result), nil
}

func (m *mockApplicationRepo) FindByID(ctx context.Context, id string) (*models.Application, error) {
	if app, ok := m.applications[id]; ok {
		copied := *app
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockApplicationRepo) FindDetailByID(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	if app, ok := m.applications[id]; ok {
		return &models.ApplicationDetail{Application: *app, StudentName: "Student", CourseName: "Course"}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockApplicationRepo) ExistsOpen(ctx context.Context, studentID, courseID string) (bool, error) {
	for _, app := range m.applications {
		if app.StudentID != studentID || app.CourseID != courseID {
			continue
		}
		if app.Status == models.ApplicationStatusPending || app.Status == models.ApplicationStatusApproved {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockApplicationRepo) Create(ctx context.Context, application *models.Application) error {
	m.createCalls++
	if m.applications == nil {
		m.applications = make(map[string]*models.Application)
	}
	application.ID = fmt.Sprintf("app-%d", m.createCalls)
	copied := *application
	m.applications[application.ID] = &copied
	return nil
}

func (m *mockApplicationRepo) UpdateStatusFrom(ctx context.Context, id string, from, to models.ApplicationStatus, decidedAt time.Time) (bool, error) {
	if m.casLoses {
		return false, nil
	}
	app, ok := m.applications[id]
	if !ok || app.Status != from {
		return false, nil
	}
	app.Status = to
	app.DecidedAt = &decidedAt
	return true, nil
}

type mockCourseReader struct {
	courses map[string]*models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if course, ok := m.courses[id]; ok {
		return course, nil
	}
	return nil, sql.ErrNoRows
}

type mockStudentReader struct {
	students map[string]*models.Student
}

func (m *mockStudentReader) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if student, ok := m.students[userID]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

func studentActor(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleStudent}
}

func newAdmissionFixture() (*AdmissionService, *mockApplicationRepo) {
	apps := &mockApplicationRepo{}
	courses := &mockCourseReader{courses: map[string]*models.Course{
		"course-1": {ID: "course-1", InstitutionID: "inst-1", Name: "Computing", Requirements: models.SubjectRecord{"maths": "B", "english": "C"}},
		"course-open": {ID: "course-open", InstitutionID: "inst-1", Name: "Open Studies", Requirements: models.SubjectRecord{}},
	}}
	students := &mockStudentReader{students: map[string]*models.Student{
		"user-1": {ID: "stu-1", UserID: "user-1", FullName: "Lineo M", AcademicRecords: models.SubjectRecord{"maths": "A", "english": "B"}},
		"user-2": {ID: "stu-2", UserID: "user-2", FullName: "Thabo K", AcademicRecords: models.SubjectRecord{"maths": "D", "english": "B"}},
	}}
	svc := NewAdmissionService(apps, courses, students, NewEligibilityService(nil), validator.New(), zap.NewNop())
	return svc, apps
}

func TestAdmissionApplyEligibleCreatesPending(t *testing.T) {
	svc, apps := newAdmissionFixture()

	outcome, err := svc.Apply(context.Background(), studentActor("user-1"), ApplyCourseRequest{CourseID: "course-1"})
	require.NoError(t, err)
	require.NotNil(t, outcome.Application)
	assert.True(t, outcome.Eligibility.Eligible)
	assert.Equal(t, models.ApplicationStatusPending, outcome.Application.Status)
	assert.Equal(t, "stu-1", outcome.Application.StudentID)
	assert.Equal(t, "inst-1", outcome.Application.InstitutionID)
	assert.Equal(t, 1, apps.createCalls)
}

func TestAdmissionApplyIneligibleWritesNothing(t *testing.T) {
	svc, apps := newAdmissionFixture()

	outcome, err := svc.Apply(context.Background(), studentActor("user-2"), ApplyCourseRequest{CourseID: "course-1"})
	require.NoError(t, err)
	assert.Nil(t, outcome.Application)
	require.NotNil(t, outcome.Eligibility)
	assert.False(t, outcome.Eligibility.Eligible)
	assert.Zero(t, apps.createCalls, "ineligible application must not touch storage")
}

func TestAdmissionApplyDuplicateConflicts(t *testing.T) {
	svc, _ := newAdmissionFixture()

	_, err := svc.Apply(context.Background(), studentActor("user-1"), ApplyCourseRequest{CourseID: "course-1"})
	require.NoError(t, err)

	_, err = svc.Apply(context.Background(), studentActor("user-1"), ApplyCourseRequest{CourseID: "course-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAdmissionApplyUnknownCourse(t *testing.T) {
	svc, _ := newAdmissionFixture()

	_, err := svc.Apply(context.Background(), studentActor("user-1"), ApplyCourseRequest{CourseID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAdmissionApplyNonStudentUnauthorized(t *testing.T) {
	svc, _ := newAdmissionFixture()
	staff := &models.JWTClaims{UserID: "staff-1", Role: models.RoleInstitute}

	_, err := svc.Apply(context.Background(), staff, ApplyCourseRequest{CourseID: "course-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAdmissionApplyNoProfileIsIneligible(t *testing.T) {
	svc, apps := newAdmissionFixture()

	outcome, err := svc.Apply(context.Background(), studentActor("user-unknown"), ApplyCourseRequest{CourseID: "course-1"})
	require.NoError(t, err)
	assert.Nil(t, outcome.Application)
	assert.False(t, outcome.Eligibility.Eligible)
	require.NotEmpty(t, outcome.Eligibility.Subjects)
	assert.Equal(t, models.ReasonNoAcademicRecord, outcome.Eligibility.Subjects[0].Reason)
	assert.Zero(t, apps.createCalls)
}

func TestAdmissionCheckEligibilityDoesNotCreate(t *testing.T) {
	svc, apps := newAdmissionFixture()

	result, err := svc.CheckEligibility(context.Background(), studentActor("user-1"), "course-1")
	require.NoError(t, err)
	assert.True(t, result.Eligible)
	assert.Zero(t, apps.createCalls)
}

func TestAdmissionDecideApprove(t *testing.T) {
	svc, apps := newAdmissionFixture()

	outcome, err := svc.Apply(context.Background(), studentActor("user-1"), ApplyCourseRequest{CourseID: "course-1"})
	require.NoError(t, err)

	instID := "inst-1"
	staff := &models.JWTClaims{UserID: "staff-1", Role: models.RoleInstitute, InstitutionID: &instID}
	detail, err := svc.Decide(context.Background(), staff, outcome.Application.ID, models.ApplicationEventApprove)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApproved, detail.Status)
	require.NotNil(t, apps.applications[outcome.Application.ID].DecidedAt)
}

func TestAdmissionDecideTwiceFails(t *testing.T) {
	svc, _ := newAdmissionFixture()

	outcome, err := svc.Apply(context.Background(), studentActor("user-1"), ApplyCourseRequest{CourseID: "course-1"})
	require.NoError(t, err)

	instID := "inst-1"
	staff := &models.JWTClaims{UserID: "staff-1", Role: models.RoleInstitute, InstitutionID: &instID}
	_, err = svc.Decide(context.Background(), staff, outcome.Application.ID, models.ApplicationEventApprove)
	require.NoError(t, err)

	_, err = svc.Decide(context.Background(), staff, outcome.Application.ID, models.ApplicationEventApprove)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestAdmissionDecideWrongInstitution(t *testing.T) {
	svc, _ := newAdmissionFixture()

	outcome, err := svc.Apply(context.Background(), studentActor("user-1"), ApplyCourseRequest{CourseID: "course-1"})
	require.NoError(t, err)

	otherInst := "inst-2"
	staff := &models.JWTClaims{UserID: "staff-2", Role: models.RoleInstitute, InstitutionID: &otherInst}
	_, err = svc.Decide(context.Background(), staff, outcome.Application.ID, models.ApplicationEventApprove)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAdmissionDecideLosesRace(t *testing.T) {
	svc, apps := newAdmissionFixture()

	outcome, err := svc.Apply(context.Background(), studentActor("user-1"), ApplyCourseRequest{CourseID: "course-1"})
	require.NoError(t, err)

	apps.casLoses = true
	instID := "inst-1"
	staff := &models.JWTClaims{UserID: "staff-1", Role: models.RoleInstitute, InstitutionID: &instID}
	_, err = svc.Decide(context.Background(), staff, outcome.Application.ID, models.ApplicationEventApprove)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestAdmissionListScopesByRole(t *testing.T) {
	svc, apps := newAdmissionFixture()
	apps.applications = map[string]*models.Application{
		"app-a": {ID: "app-a", StudentID: "stu-1", CourseID: "course-1", InstitutionID: "inst-1", Status: models.ApplicationStatusPending},
		"app-b": {ID: "app-b", StudentID: "stu-2", CourseID: "course-9", InstitutionID: "inst-2", Status: models.ApplicationStatusPending},
	}

	instID := "inst-1"
	staff := &models.JWTClaims{UserID: "staff-1", Role: models.RoleInstitute, InstitutionID: &instID}
	list, pagination, err := svc.List(context.Background(), staff, models.ApplicationFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "app-a", list[0].ID)
	assert.Equal(t, 1, pagination.TotalCount)

	list, _, err = svc.List(context.Background(), studentActor("user-1"), models.ApplicationFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "stu-1", list[0].StudentID)

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	list, _, err = svc.List(context.Background(), admin, models.ApplicationFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
