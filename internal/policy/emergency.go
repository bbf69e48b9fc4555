package policy

import (
	emergency "cityconnect/internal/emergency/models"
	"cityconnect/pkg/domain"
)

// AuthorizeSOS lets any known role raise an SOS. The request is always
// attributed to the caller.
func (k Kernel) AuthorizeSOS(actor domain.Actor, req emergency.SOSDraft) (emergency.SOSDraft, error) {
	if err := requireActor(actor); err != nil {
		return emergency.SOSDraft{}, err
	}
	switch actor.Role {
	case domain.RoleCitizen, domain.RoleDepartment, domain.RoleAdmin:
		req.RequesterID = actor.SubjectID
		return req, nil
	default:
		return emergency.SOSDraft{}, forbidden(actor, ResourceSOS, ActionCreate, "SOS requests may not be raised by this role")
	}
}
