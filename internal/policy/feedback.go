package policy

import (
	feedback "cityconnect/internal/feedback/models"
	"cityconnect/pkg/domain"
)

// FeedbackFilter returns the feedback actor may read: admins see all, citizens their own.
func (k Kernel) FeedbackFilter(actor domain.Actor) (feedback.Filter, error) {
	if err := requireActor(actor); err != nil {
		return feedback.Filter{}, err
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return feedback.Filter{}, nil
	case domain.RoleCitizen:
		return feedback.Filter{OwnerID: strPtr(actor.SubjectID)}, nil
	case domain.RoleDepartment:
		return feedback.Filter{}, forbidden(actor, ResourceFeedback, ActionList, "departments may not read feedback")
	default:
		return feedback.Filter{}, forbidden(actor, ResourceFeedback, ActionList, "feedback is not visible to this role")
	}
}

// AuthorizeFeedbackCreate lets citizens submit feedback under their own identity.
func (k Kernel) AuthorizeFeedbackCreate(actor domain.Actor, draft feedback.Draft) (feedback.Draft, error) {
	if err := requireActor(actor); err != nil {
		return feedback.Draft{}, err
	}
	switch actor.Role {
	case domain.RoleCitizen:
		draft.OwnerID = actor.SubjectID
		return draft, nil
	case domain.RoleDepartment, domain.RoleAdmin:
		return feedback.Draft{}, forbidden(actor, ResourceFeedback, ActionCreate, "only citizens may submit feedback")
	default:
		return feedback.Draft{}, forbidden(actor, ResourceFeedback, ActionCreate, "only citizens may submit feedback")
	}
}
