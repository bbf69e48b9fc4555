package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "cityconnect/pkg/domain-errors"
)

func validDraft() Draft {
	return Draft{
		OwnerID:     "citizen-1",
		Title:       "  Pothole on Main St ",
		Description: "Large pothole near the school gate",
		Category:    CategoryRoads,
		Location:    "Main St",
	}
}

func TestNewComplaint(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("starts pending with trimmed fields", func(t *testing.T) {
		c, err := NewComplaint("c-1", validDraft(), now)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, c.Status)
		assert.Equal(t, "Pothole on Main St", c.Title)
		assert.Equal(t, "citizen-1", c.OwnerID)
		assert.Nil(t, c.AssignedDepartment)
		assert.Equal(t, now, c.CreatedAt)
	})

	t.Run("blank image ref is dropped", func(t *testing.T) {
		d := validDraft()
		blank := "   "
		d.ImageRef = &blank
		c, err := NewComplaint("c-1", d, now)
		require.NoError(t, err)
		assert.Nil(t, c.ImageRef)
	})

	t.Run("missing fields are invariant violations", func(t *testing.T) {
		cases := map[string]func(d *Draft){
			"owner":       func(d *Draft) { d.OwnerID = "" },
			"title":       func(d *Draft) { d.Title = " " },
			"description": func(d *Draft) { d.Description = "" },
			"location":    func(d *Draft) { d.Location = "" },
			"category":    func(d *Draft) { d.Category = "Graffiti" },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				d := validDraft()
				mutate(&d)
				_, err := NewComplaint("c-1", d, now)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
			})
		}
	})
}

func TestParseStatus(t *testing.T) {
	for input, want := range map[string]Status{
		"Pending":     StatusPending,
		"In Progress": StatusInProgress,
		"inprogress":  StatusInProgress,
		"in_progress": StatusInProgress,
		"RESOLVED":    StatusResolved,
	} {
		got, err := ParseStatus(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseStatus("Closed")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestStatusCanTransitionToAnyState(t *testing.T) {
	all := []Status{StatusPending, StatusInProgress, StatusResolved}
	for _, from := range all {
		for _, to := range all {
			assert.True(t, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.False(t, StatusResolved.CanTransitionTo("Closed"))
}

func TestApplyPatch(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)

	c, err := NewComplaint("c-1", validDraft(), now)
	require.NoError(t, err)

	t.Run("empty patch is rejected", func(t *testing.T) {
		err := c.CanApply(Patch{})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("sets fields and keeps owner", func(t *testing.T) {
		status := StatusResolved
		dept := "Public Works"
		remarks := "Filled"
		p := Patch{Status: &status, AssignedDepartment: &dept, Remarks: &remarks}
		require.NoError(t, c.CanApply(p))
		c.ApplyPatch(p, later)

		assert.Equal(t, StatusResolved, c.Status)
		assert.Equal(t, "Public Works", *c.AssignedDepartment)
		assert.Equal(t, "Filled", *c.Remarks)
		assert.Equal(t, "citizen-1", c.OwnerID)
		assert.Equal(t, later, c.UpdatedAt)
	})

	t.Run("empty string clears assignment", func(t *testing.T) {
		empty := ""
		c.ApplyPatch(Patch{AssignedDepartment: &empty}, later)
		assert.Nil(t, c.AssignedDepartment)
	})
}

func TestFilterMatches(t *testing.T) {
	dept := "Water"
	other := "Roads"
	c := &Complaint{OwnerID: "u1", Status: StatusPending, Category: CategoryWaterSupply, AssignedDepartment: &dept}
	owner := "u1"
	stranger := "u2"
	resolved := StatusResolved

	assert.True(t, Filter{}.Matches(c))
	assert.True(t, Filter{OwnerID: &owner}.Matches(c))
	assert.False(t, Filter{OwnerID: &stranger}.Matches(c))
	assert.True(t, Filter{AssignedDepartment: &dept}.Matches(c))
	assert.False(t, Filter{AssignedDepartment: &other}.Matches(c))
	assert.False(t, Filter{AssignedDepartment: &dept}.Matches(&Complaint{}))
	assert.False(t, Filter{Status: &resolved}.Matches(c))
	assert.False(t, Filter{}.Matches(nil))
}
