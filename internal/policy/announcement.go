package policy

import (
	announcement "cityconnect/internal/announcement/models"
	"cityconnect/pkg/domain"
)

// AnnouncementFilter returns the announcements actor may read.
//
// Admins see everything. Departments see global announcements and their own,
// including inactive ones so they can be reactivated. Citizens see active
// global announcements, plus their affiliated department's when configured.
func (k Kernel) AnnouncementFilter(actor domain.Actor) (announcement.Filter, error) {
	if err := requireActor(actor); err != nil {
		return announcement.Filter{}, err
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return announcement.Filter{}, nil
	case domain.RoleDepartment:
		return announcement.Filter{
			Audience: &announcement.Audience{IncludeGlobal: true, Departments: []string{actor.Department}},
		}, nil
	case domain.RoleCitizen:
		audience := &announcement.Audience{IncludeGlobal: true}
		if k.Config().CitizenAnnouncements == AnnouncementScopeAffiliated && actor.Affiliation != "" {
			audience.Departments = []string{actor.Affiliation}
		}
		return announcement.Filter{Audience: audience, ActiveOnly: true}, nil
	default:
		return announcement.Filter{}, forbidden(actor, ResourceAnnouncement, ActionList, "announcements are not visible to this role")
	}
}

// AuthorizeAnnouncementCreate lets departments and admins publish.
// A department always publishes to its own department.
func (k Kernel) AuthorizeAnnouncementCreate(actor domain.Actor, draft announcement.Draft) (announcement.Draft, error) {
	if err := requireActor(actor); err != nil {
		return announcement.Draft{}, err
	}
	switch actor.Role {
	case domain.RoleAdmin:
		draft.CreatorID = actor.SubjectID
		return draft, nil
	case domain.RoleDepartment:
		draft.CreatorID = actor.SubjectID
		draft.TargetDepartment = strPtr(actor.Department)
		return draft, nil
	case domain.RoleCitizen:
		return announcement.Draft{}, forbidden(actor, ResourceAnnouncement, ActionCreate, "citizens may not publish announcements")
	default:
		return announcement.Draft{}, forbidden(actor, ResourceAnnouncement, ActionCreate, "announcements may not be published by this role")
	}
}

// AuthorizeAnnouncementMutate lets admins edit anything and departments edit
// announcements targeting their own department. Department edits keep the
// target pinned to that department.
func (k Kernel) AuthorizeAnnouncementMutate(actor domain.Actor, existing *announcement.Announcement, patch announcement.Patch) (announcement.Patch, error) {
	if err := k.authorizeAnnouncementWrite(actor, existing, ActionMutate); err != nil {
		return announcement.Patch{}, err
	}
	if actor.Role == domain.RoleDepartment {
		patch.TargetDepartment = strPtr(actor.Department)
	}
	return patch, nil
}

// AuthorizeAnnouncementDelete applies the mutate rule to hard deletion.
func (k Kernel) AuthorizeAnnouncementDelete(actor domain.Actor, existing *announcement.Announcement) error {
	return k.authorizeAnnouncementWrite(actor, existing, ActionDelete)
}

func (k Kernel) authorizeAnnouncementWrite(actor domain.Actor, existing *announcement.Announcement, action string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleDepartment:
		if existing == nil || !existing.TargetsDepartment(actor.Department) {
			return forbidden(actor, ResourceAnnouncement, action, "announcement is outside your department scope")
		}
		return nil
	case domain.RoleCitizen:
		return forbidden(actor, ResourceAnnouncement, action, "citizens may not modify announcements")
	default:
		return forbidden(actor, ResourceAnnouncement, action, "announcements may not be modified by this role")
	}
}
