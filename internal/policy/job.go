package policy

import (
	job "cityconnect/internal/job/models"
	"cityconnect/pkg/domain"
)

// JobFilter returns the postings actor may read. Only admins see closed postings.
func (k Kernel) JobFilter(actor domain.Actor) (job.Filter, error) {
	if err := requireActor(actor); err != nil {
		return job.Filter{}, err
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return job.Filter{}, nil
	case domain.RoleDepartment, domain.RoleCitizen:
		return job.Filter{ActiveOnly: true}, nil
	default:
		return job.Filter{}, forbidden(actor, ResourceJob, ActionList, "job postings are not visible to this role")
	}
}

// AuthorizeJobCreate lets admins post vacancies under their own subject.
func (k Kernel) AuthorizeJobCreate(actor domain.Actor, draft job.Draft) (job.Draft, error) {
	if err := k.authorizeJobWrite(actor, ActionCreate); err != nil {
		return job.Draft{}, err
	}
	draft.PostedBy = actor.SubjectID
	return draft, nil
}

// AuthorizeJobMutate lets admins edit any posting.
func (k Kernel) AuthorizeJobMutate(actor domain.Actor, _ *job.Job, patch job.Patch) (job.Patch, error) {
	if err := k.authorizeJobWrite(actor, ActionMutate); err != nil {
		return job.Patch{}, err
	}
	return patch, nil
}

// AuthorizeJobDelete lets admins remove any posting.
func (k Kernel) AuthorizeJobDelete(actor domain.Actor, _ *job.Job) error {
	return k.authorizeJobWrite(actor, ActionDelete)
}

func (k Kernel) authorizeJobWrite(actor domain.Actor, action string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleDepartment:
		return forbidden(actor, ResourceJob, action, "departments may not manage job postings")
	case domain.RoleCitizen:
		return forbidden(actor, ResourceJob, action, "citizens may not manage job postings")
	default:
		return forbidden(actor, ResourceJob, action, "job postings may not be managed by this role")
	}
}
