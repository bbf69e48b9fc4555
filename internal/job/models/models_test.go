package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "cityconnect/pkg/domain-errors"
)

func strPtr(s string) *string { return &s }

func validDraft() Draft {
	return Draft{
		PostedBy:     "admin-1",
		Title:        "Junior Civil Engineer",
		Description:  "Road maintenance planning",
		Department:   "Public Works",
		Location:     "Sector 9 Depot",
		ContactEmail: "jobs@city.example",
	}
}

func TestNewJob(t *testing.T) {
	now := time.Date(2024, 7, 30, 0, 0, 0, 0, time.UTC)

	t.Run("defaults", func(t *testing.T) {
		j, err := NewJob("j-1", validDraft(), now)
		require.NoError(t, err)
		assert.True(t, j.IsActive)
		assert.Equal(t, SalaryNotSpecified, j.Salary)
		assert.NotNil(t, j.Requirements)
		assert.Empty(t, j.Requirements)
		assert.Nil(t, j.ContactPhone)
		assert.Equal(t, now, j.CreatedAt)
	})

	t.Run("trims optional fields", func(t *testing.T) {
		d := validDraft()
		d.Salary = " 40,000/month "
		d.Requirements = []string{" B.Tech ", "", "  "}
		d.ContactPhone = strPtr("  ")
		j, err := NewJob("j-2", d, now)
		require.NoError(t, err)
		assert.Equal(t, "40,000/month", j.Salary)
		assert.Equal(t, []string{"B.Tech"}, j.Requirements)
		assert.Nil(t, j.ContactPhone)
	})

	tests := []struct {
		name   string
		mutate func(*Draft)
	}{
		{"missing title", func(d *Draft) { d.Title = " " }},
		{"missing department", func(d *Draft) { d.Department = "" }},
		{"missing location", func(d *Draft) { d.Location = "" }},
		{"missing contact email", func(d *Draft) { d.ContactEmail = "" }},
		{"malformed contact email", func(d *Draft) { d.ContactEmail = "jobs at city" }},
		{"missing poster", func(d *Draft) { d.PostedBy = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)
			_, err := NewJob("j-3", d, now)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		})
	}
}

func TestApplyPatch(t *testing.T) {
	now := time.Date(2024, 7, 30, 0, 0, 0, 0, time.UTC)
	d := validDraft()
	d.Salary = "40,000/month"
	d.ContactPhone = strPtr("555-0100")
	j, err := NewJob("j-1", d, now)
	require.NoError(t, err)

	assert.True(t, dErrors.HasCode(j.CanApply(Patch{}), dErrors.CodeValidation))
	assert.True(t, dErrors.HasCode(j.CanApply(Patch{Location: strPtr(" ")}), dErrors.CodeValidation))
	assert.True(t, dErrors.HasCode(j.CanApply(Patch{ContactEmail: strPtr("nope")}), dErrors.CodeValidation))

	inactive := false
	reqs := []string{"Driving licence"}
	p := Patch{Salary: strPtr(""), ContactPhone: strPtr(""), Requirements: &reqs, IsActive: &inactive}
	require.NoError(t, j.CanApply(p))
	j.ApplyPatch(p, now.Add(time.Hour))

	assert.Equal(t, SalaryNotSpecified, j.Salary)
	assert.Nil(t, j.ContactPhone)
	assert.Equal(t, []string{"Driving licence"}, j.Requirements)
	assert.False(t, j.IsActive)
	assert.Equal(t, "Junior Civil Engineer", j.Title)
	assert.Equal(t, now.Add(time.Hour), j.UpdatedAt)
}

func TestFilterMatches(t *testing.T) {
	j, err := NewJob("j-1", validDraft(), time.Now())
	require.NoError(t, err)

	assert.True(t, Filter{}.Matches(j))
	assert.True(t, Filter{Department: "public", Location: "DEPOT"}.Matches(j))
	assert.False(t, Filter{Department: "water"}.Matches(j))
	assert.False(t, Filter{}.Matches(nil))

	j.IsActive = false
	assert.True(t, Filter{}.Matches(j))
	assert.False(t, Filter{ActiveOnly: true}.Matches(j))
}
