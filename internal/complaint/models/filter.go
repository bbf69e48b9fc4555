package models

// Filter is a declarative complaint predicate. Nil fields match everything.
// Memory stores evaluate it with Matches; SQL stores translate it to a WHERE clause.
type Filter struct {
	OwnerID            *string
	AssignedDepartment *string
	Status             *Status
	Category           *Category
}

// Matches reports whether c satisfies every set field.
func (f Filter) Matches(c *Complaint) bool {
	if c == nil {
		return false
	}
	if f.OwnerID != nil && c.OwnerID != *f.OwnerID {
		return false
	}
	if f.AssignedDepartment != nil {
		if c.AssignedDepartment == nil || *c.AssignedDepartment != *f.AssignedDepartment {
			return false
		}
	}
	if f.Status != nil && c.Status != *f.Status {
		return false
	}
	if f.Category != nil && c.Category != *f.Category {
		return false
	}
	return true
}
