package models

import "strings"

// Filter is a declarative job predicate. Department and Location match
// case-insensitive substrings; empty values match everything.
type Filter struct {
	ActiveOnly bool
	Department string
	Location   string
}

func (f Filter) Matches(j *Job) bool {
	if j == nil {
		return false
	}
	if f.ActiveOnly && !j.IsActive {
		return false
	}
	if !containsFold(j.Department, f.Department) {
		return false
	}
	return containsFold(j.Location, f.Location)
}

func containsFold(s, sub string) bool {
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
