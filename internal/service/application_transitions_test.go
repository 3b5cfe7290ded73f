package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerplatform/admissions-api/internal/models"
	appErrors "github.com/careerplatform/admissions-api/pkg/errors"
)

func staffClaims(institutionID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "staff-1", Role: models.RoleInstitute, InstitutionID: &institutionID}
}

func TestTransitionApprovePending(t *testing.T) {
	next, err := TransitionStatus(models.ApplicationStatusPending, models.ApplicationEventApprove, staffClaims("inst-1"), "inst-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApproved, next)
}

func TestTransitionRejectPending(t *testing.T) {
	next, err := TransitionStatus(models.ApplicationStatusPending, models.ApplicationEventReject, staffClaims("inst-1"), "inst-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusRejected, next)
}

func TestTransitionAdminMayDecideAnyInstitution(t *testing.T) {
	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}

	next, err := TransitionStatus(models.ApplicationStatusPending, models.ApplicationEventApprove, admin, "inst-9")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApproved, next)
}

func TestTransitionTerminalStatesRejectEverything(t *testing.T) {
	actor := staffClaims("inst-1")

	for _, current := range []models.ApplicationStatus{models.ApplicationStatusApproved, models.ApplicationStatusRejected} {
		for _, event := range []models.ApplicationEvent{models.ApplicationEventApprove, models.ApplicationEventReject} {
			next, err := TransitionStatus(current, event, actor, "inst-1")
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
			assert.Equal(t, current, next, "failed transition must not move the status")
		}
	}
}

func TestTransitionReapprovalFailsLoudly(t *testing.T) {
	_, err := TransitionStatus(models.ApplicationStatusApproved, models.ApplicationEventApprove, staffClaims("inst-1"), "inst-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestTransitionWrongInstitutionIsUnauthorized(t *testing.T) {
	_, err := TransitionStatus(models.ApplicationStatusPending, models.ApplicationEventApprove, staffClaims("inst-2"), "inst-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestTransitionStudentRoleIsUnauthorized(t *testing.T) {
	student := &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}

	_, err := TransitionStatus(models.ApplicationStatusPending, models.ApplicationEventApprove, student, "inst-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestTransitionNilActorIsUnauthorized(t *testing.T) {
	_, err := TransitionStatus(models.ApplicationStatusPending, models.ApplicationEventApprove, nil, "inst-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

// The scope check runs before the state check: an out-of-scope actor poking a
// decided application learns nothing about its state.
func TestTransitionScopeCheckedBeforeState(t *testing.T) {
	_, err := TransitionStatus(models.ApplicationStatusApproved, models.ApplicationEventApprove, staffClaims("inst-2"), "inst-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestTransitionUnknownStatus(t *testing.T) {
	_, err := TransitionStatus(models.ApplicationStatus("ARCHIVED"), models.ApplicationEventApprove, staffClaims("inst-1"), "inst-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}
