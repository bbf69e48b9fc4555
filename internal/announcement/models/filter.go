package models

// Audience restricts announcements by target department.
// Global announcements match when IncludeGlobal is set; scoped ones match
// when their department is listed.
type Audience struct {
	IncludeGlobal bool
	Departments   []string
}

func (a Audience) matches(target *string) bool {
	if target == nil {
		return a.IncludeGlobal
	}
	for _, d := range a.Departments {
		if d == *target {
			return true
		}
	}
	return false
}

// Filter is a declarative announcement predicate. A nil Audience matches every target.
type Filter struct {
	Audience   *Audience
	ActiveOnly bool
	Category   *Category
}

func (f Filter) Matches(a *Announcement) bool {
	if a == nil {
		return false
	}
	if f.Audience != nil && !f.Audience.matches(a.TargetDepartment) {
		return false
	}
	if f.ActiveOnly && !a.IsActive {
		return false
	}
	if f.Category != nil && a.Category != *f.Category {
		return false
	}
	return true
}
