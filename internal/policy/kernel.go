// Package policy decides, for every resource type and actor, what is visible,
// what may be created or mutated, and how payloads are rewritten before they
// reach a store.
//
// Everything here is pure: no I/O, no clock, no globals. Services call the
// kernel with the actor from the request context and the loaded resource, and
// push the returned filters down to their stores.
package policy

import (
	"errors"
	"fmt"
	"strings"

	"cityconnect/pkg/domain"
	dErrors "cityconnect/pkg/domain-errors"
)

// ComplaintScope controls which complaints a department actor can see.
type ComplaintScope string

const (
	// ComplaintScopeAll lets departments see every complaint.
	ComplaintScopeAll ComplaintScope = "all"
	// ComplaintScopeAssigned limits departments to complaints assigned to them.
	ComplaintScopeAssigned ComplaintScope = "assigned"
)

// AnnouncementScope controls which announcements a citizen can see.
type AnnouncementScope string

const (
	// AnnouncementScopeGlobal shows citizens global announcements only.
	AnnouncementScopeGlobal AnnouncementScope = "global"
	// AnnouncementScopeAffiliated also shows announcements for the citizen's affiliated department.
	AnnouncementScopeAffiliated AnnouncementScope = "affiliated"
)

// Config holds the deployment-level policy parameters.
type Config struct {
	ComplaintScope       ComplaintScope
	CitizenAnnouncements AnnouncementScope
}

// DefaultConfig is the unrestricted department / global citizen deployment.
func DefaultConfig() Config {
	return Config{
		ComplaintScope:       ComplaintScopeAll,
		CitizenAnnouncements: AnnouncementScopeGlobal,
	}
}

// ParseConfig builds a Config from configuration strings. Empty values take defaults.
func ParseConfig(complaintScope, announcementScope string) (Config, error) {
	cfg := DefaultConfig()
	switch ComplaintScope(strings.ToLower(strings.TrimSpace(complaintScope))) {
	case "", ComplaintScopeAll:
	case ComplaintScopeAssigned:
		cfg.ComplaintScope = ComplaintScopeAssigned
	default:
		return Config{}, fmt.Errorf("unknown complaint department scope %q", complaintScope)
	}
	switch AnnouncementScope(strings.ToLower(strings.TrimSpace(announcementScope))) {
	case "", AnnouncementScopeGlobal:
	case AnnouncementScopeAffiliated:
		cfg.CitizenAnnouncements = AnnouncementScopeAffiliated
	default:
		return Config{}, fmt.Errorf("unknown citizen announcement scope %q", announcementScope)
	}
	return cfg, nil
}

// Kernel evaluates policy decisions for one deployment configuration.
// The zero value behaves like NewKernel(DefaultConfig()).
type Kernel struct {
	cfg Config
}

func NewKernel(cfg Config) Kernel {
	if cfg.ComplaintScope == "" {
		cfg.ComplaintScope = ComplaintScopeAll
	}
	if cfg.CitizenAnnouncements == "" {
		cfg.CitizenAnnouncements = AnnouncementScopeGlobal
	}
	return Kernel{cfg: cfg}
}

// Config returns the parameters the kernel was built with.
func (k Kernel) Config() Config {
	return NewKernel(k.cfg).cfg
}

// Resource and action labels used in denial errors and metrics.
const (
	ResourceComplaint    = "complaint"
	ResourceBill         = "bill"
	ResourcePayment      = "payment"
	ResourceAnnouncement = "announcement"
	ResourceFeedback     = "feedback"
	ResourceJob          = "job"
	ResourceSOS          = "sos"

	ActionList   = "list"
	ActionCreate = "create"
	ActionMutate = "mutate"
	ActionSettle = "settle"
	ActionDelete = "delete"
)

// Denial is the cause attached to every Forbidden error the kernel returns.
type Denial struct {
	Resource string
	Action   string
	Role     domain.Role
}

func (d *Denial) Error() string {
	return fmt.Sprintf("%s may not %s %s", d.Role, d.Action, d.Resource)
}

// DenialOf returns the Denial carried by err, if any.
func DenialOf(err error) (*Denial, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

func forbidden(actor domain.Actor, resource, action, msg string) error {
	return dErrors.Wrap(&Denial{Resource: resource, Action: action, Role: actor.Role}, dErrors.CodeForbidden, msg)
}

func requireActor(actor domain.Actor) error {
	if actor.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

func strPtr(s string) *string {
	return &s
}
