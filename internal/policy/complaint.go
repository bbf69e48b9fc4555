package policy

import (
	complaint "cityconnect/internal/complaint/models"
	"cityconnect/pkg/domain"
)

// ComplaintFilter returns the complaints actor may read.
func (k Kernel) ComplaintFilter(actor domain.Actor) (complaint.Filter, error) {
	if err := requireActor(actor); err != nil {
		return complaint.Filter{}, err
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return complaint.Filter{}, nil
	case domain.RoleDepartment:
		if k.Config().ComplaintScope == ComplaintScopeAssigned {
			return complaint.Filter{AssignedDepartment: strPtr(actor.Department)}, nil
		}
		return complaint.Filter{}, nil
	case domain.RoleCitizen:
		return complaint.Filter{OwnerID: strPtr(actor.SubjectID)}, nil
	default:
		return complaint.Filter{}, forbidden(actor, ResourceComplaint, ActionList, "complaints are not visible to this role")
	}
}

// AuthorizeComplaintCreate lets citizens file complaints and stamps them as the owner.
func (k Kernel) AuthorizeComplaintCreate(actor domain.Actor, draft complaint.Draft) (complaint.Draft, error) {
	if err := requireActor(actor); err != nil {
		return complaint.Draft{}, err
	}
	switch actor.Role {
	case domain.RoleCitizen:
		draft.OwnerID = actor.SubjectID
		return draft, nil
	case domain.RoleDepartment, domain.RoleAdmin:
		return complaint.Draft{}, forbidden(actor, ResourceComplaint, ActionCreate, "only citizens may file complaints")
	default:
		return complaint.Draft{}, forbidden(actor, ResourceComplaint, ActionCreate, "only citizens may file complaints")
	}
}

// AuthorizeComplaintMutate lets departments and admins triage a visible complaint.
func (k Kernel) AuthorizeComplaintMutate(actor domain.Actor, existing *complaint.Complaint, patch complaint.Patch) (complaint.Patch, error) {
	if err := requireActor(actor); err != nil {
		return complaint.Patch{}, err
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return patch, nil
	case domain.RoleDepartment:
		filter, err := k.ComplaintFilter(actor)
		if err != nil {
			return complaint.Patch{}, err
		}
		if !filter.Matches(existing) {
			return complaint.Patch{}, forbidden(actor, ResourceComplaint, ActionMutate, "complaint is outside your department scope")
		}
		return patch, nil
	case domain.RoleCitizen:
		return complaint.Patch{}, forbidden(actor, ResourceComplaint, ActionMutate, "citizens may not update complaints")
	default:
		return complaint.Patch{}, forbidden(actor, ResourceComplaint, ActionMutate, "complaints may not be updated by this role")
	}
}
