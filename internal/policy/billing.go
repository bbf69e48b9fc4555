package policy

import (
	billing "cityconnect/internal/billing/models"
	"cityconnect/pkg/domain"
)

// BillFilter returns the bills actor may read. Bills are only exposed to their owners.
func (k Kernel) BillFilter(actor domain.Actor) (billing.BillFilter, error) {
	if err := requireActor(actor); err != nil {
		return billing.BillFilter{}, err
	}
	switch actor.Role {
	case domain.RoleCitizen:
		return billing.BillFilter{OwnerID: strPtr(actor.SubjectID)}, nil
	case domain.RoleDepartment, domain.RoleAdmin:
		return billing.BillFilter{}, forbidden(actor, ResourceBill, ActionList, "bills are only visible to their owners")
	default:
		return billing.BillFilter{}, forbidden(actor, ResourceBill, ActionList, "bills are only visible to their owners")
	}
}

// PaymentFilter returns the payments actor may read. Payments follow bill ownership.
func (k Kernel) PaymentFilter(actor domain.Actor) (billing.PaymentFilter, error) {
	if err := requireActor(actor); err != nil {
		return billing.PaymentFilter{}, err
	}
	switch actor.Role {
	case domain.RoleCitizen:
		return billing.PaymentFilter{OwnerID: strPtr(actor.SubjectID)}, nil
	case domain.RoleDepartment, domain.RoleAdmin:
		return billing.PaymentFilter{}, forbidden(actor, ResourcePayment, ActionList, "payments are only visible to their owners")
	default:
		return billing.PaymentFilter{}, forbidden(actor, ResourcePayment, ActionList, "payments are only visible to their owners")
	}
}

// AuthorizeBillCreate lets admins issue bills to any citizen.
func (k Kernel) AuthorizeBillCreate(actor domain.Actor, draft billing.BillDraft) (billing.BillDraft, error) {
	if err := requireActor(actor); err != nil {
		return billing.BillDraft{}, err
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return draft, nil
	case domain.RoleCitizen, domain.RoleDepartment:
		return billing.BillDraft{}, forbidden(actor, ResourceBill, ActionCreate, "only admins may issue bills")
	default:
		return billing.BillDraft{}, forbidden(actor, ResourceBill, ActionCreate, "only admins may issue bills")
	}
}

// AuthorizeSettle lets a citizen settle a bill they own. There is no generic bill mutation.
func (k Kernel) AuthorizeSettle(actor domain.Actor, bill *billing.Bill) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	switch actor.Role {
	case domain.RoleCitizen:
		if bill == nil || !bill.IsOwnedBy(actor.SubjectID) {
			return forbidden(actor, ResourceBill, ActionSettle, "only the bill owner may pay this bill")
		}
		return nil
	case domain.RoleDepartment, domain.RoleAdmin:
		return forbidden(actor, ResourceBill, ActionSettle, "only the bill owner may pay this bill")
	default:
		return forbidden(actor, ResourceBill, ActionSettle, "only the bill owner may pay this bill")
	}
}
