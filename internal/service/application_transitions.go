package service

import (
	"github.com/careerplatform/admissions-api/internal/models"
	appErrors "github.com/careerplatform/admissions-api/pkg/errors"
)

// transitionTable enumerates the legal status changes of an application.
// PENDING is the only non-terminal state; repeating a decision on an already
// decided application fails rather than succeeding silently, since decisions
// feed an audit trail.
var transitionTable = map[models.ApplicationStatus]map[models.ApplicationEvent]models.ApplicationStatus{
	models.ApplicationStatusPending: {
		models.ApplicationEventApprove: models.ApplicationStatusApproved,
		models.ApplicationEventReject:  models.ApplicationStatusRejected,
	},
	models.ApplicationStatusApproved: {},
	models.ApplicationStatusRejected: {},
}

// TransitionStatus applies the state machine for one application. The actor
// scope check runs first: only institute staff of the owning institution (or
// an admin) may drive a transition, regardless of the current state. Both
// failure modes stay distinct so callers can render a precise message.
func TransitionStatus(current models.ApplicationStatus, event models.ApplicationEvent, actor *models.JWTClaims, owningInstitutionID string) (models.ApplicationStatus, error) {
	if err := authorizeDecision(actor, owningInstitutionID); err != nil {
		return current, err
	}

	allowed, known := transitionTable[current]
	if !known {
		return current, appErrors.Clone(appErrors.ErrInvalidTransition, "unknown application status "+string(current))
	}
	next, ok := allowed[event]
	if !ok {
		return current, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot "+string(event)+" an application in status "+string(current))
	}
	return next, nil
}

func authorizeDecision(actor *models.JWTClaims, owningInstitutionID string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleInstitute:
		if actor.InstitutionID != nil && *actor.InstitutionID == owningInstitutionID {
			return nil
		}
		return appErrors.Clone(appErrors.ErrUnauthorized, "actor is not staff of the owning institution")
	default:
		return appErrors.Clone(appErrors.ErrUnauthorized, "role cannot decide applications")
	}
}
