package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cityconnect/internal/job/models"
	"cityconnect/internal/job/store"
	"cityconnect/internal/platform/db"
	"cityconnect/pkg/platform/sentinel"
)

type jobStore interface {
	Create(ctx context.Context, j *models.Job) error
	FindByID(ctx context.Context, id string) (*models.Job, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Job, error)
	Execute(ctx context.Context, id string, validate func(*models.Job) error, mutate func(*models.Job)) (*models.Job, error)
	Delete(ctx context.Context, id string, validate func(*models.Job) error) error
}

// StoreSuite is the behaviour every job store must share.
type StoreSuite struct {
	suite.Suite
	newStore func() jobStore
	store    jobStore
	base     time.Time
}

func (s *StoreSuite) SetupTest() {
	s.store = s.newStore()
	s.base = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func() jobStore { return store.NewInMemory() }})
}

func TestSQLiteStoreSuite(t *testing.T) {
	st := &StoreSuite{}
	st.newStore = func() jobStore {
		sqlDB, err := db.Open(context.Background(), db.DriverSQLite, filepath.Join(st.T().TempDir(), "jobs.db"))
		st.Require().NoError(err)
		st.T().Cleanup(func() { _ = sqlDB.Close() })
		return store.NewSQL(sqlDB, db.DialectSQLite)
	}
	suite.Run(t, st)
}

func strPtr(s string) *string { return &s }

func (s *StoreSuite) seed(id, department, location string, hourOffset int) *models.Job {
	j, err := models.NewJob(id, models.Draft{
		PostedBy:     "admin-1",
		Title:        "Posting " + id,
		Description:  "Details for " + id,
		Department:   department,
		Location:     location,
		Requirements: []string{"Graduate", "Driving licence"},
		ContactEmail: "jobs@city.example",
		ContactPhone: strPtr("555-0100"),
	}, s.base.Add(time.Duration(hourOffset)*time.Hour))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), j))
	return j
}

func (s *StoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	s.seed("j-1", "Public Works", "Sector 9 Depot", 0)

	found, err := s.store.FindByID(ctx, "j-1")
	s.Require().NoError(err)
	s.True(found.IsActive)
	s.Equal(models.SalaryNotSpecified, found.Salary)
	s.Equal([]string{"Graduate", "Driving licence"}, found.Requirements)
	s.Require().NotNil(found.ContactPhone)
	s.Equal("555-0100", *found.ContactPhone)
	s.True(s.base.Equal(found.CreatedAt))

	s.ErrorIs(s.store.Create(ctx, found), sentinel.ErrAlreadyUsed)

	_, err = s.store.FindByID(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreSuite) TestList() {
	ctx := context.Background()
	s.seed("works", "Public Works", "Sector 9 Depot", 0)
	s.seed("water", "Water Supply", "Pumping Station", 1)
	s.seed("clinic", "Health", "Sector 4 Clinic", 2)
	s.seed("wildcard", "Parks_100%", "Riverside", 3)

	_, err := s.store.Execute(ctx, "water", func(*models.Job) error { return nil }, func(j *models.Job) {
		j.IsActive = false
	})
	s.Require().NoError(err)

	s.Run("no filter sorts newest first", func() {
		list, err := s.store.List(ctx, models.Filter{})
		s.Require().NoError(err)
		s.Equal([]string{"wildcard", "clinic", "water", "works"}, ids(list))
	})

	s.Run("active only", func() {
		list, err := s.store.List(ctx, models.Filter{ActiveOnly: true})
		s.Require().NoError(err)
		s.Equal([]string{"wildcard", "clinic", "works"}, ids(list))
	})

	s.Run("case-insensitive substring filters", func() {
		list, err := s.store.List(ctx, models.Filter{Location: "SECTOR"})
		s.Require().NoError(err)
		s.Equal([]string{"clinic", "works"}, ids(list))

		list, err = s.store.List(ctx, models.Filter{Department: "water", ActiveOnly: true})
		s.Require().NoError(err)
		s.Empty(list)

		list, err = s.store.List(ctx, models.Filter{Department: "works", Location: "depot"})
		s.Require().NoError(err)
		s.Equal([]string{"works"}, ids(list))
	})

	s.Run("wildcards match literally", func() {
		list, err := s.store.List(ctx, models.Filter{Department: "_"})
		s.Require().NoError(err)
		s.Equal([]string{"wildcard"}, ids(list))

		list, err = s.store.List(ctx, models.Filter{Department: "%"})
		s.Require().NoError(err)
		s.Equal([]string{"wildcard"}, ids(list))
	})
}

func (s *StoreSuite) TestExecute() {
	ctx := context.Background()
	s.seed("j-1", "Public Works", "Sector 9 Depot", 0)

	s.Run("writes every mutable field", func() {
		reqs := []string{"Diploma"}
		inactive := false
		p := models.Patch{
			Title:        strPtr("Senior Engineer"),
			Salary:       strPtr("55,000/month"),
			Requirements: &reqs,
			ContactPhone: strPtr(""),
			IsActive:     &inactive,
		}
		_, err := s.store.Execute(ctx, "j-1", func(j *models.Job) error { return j.CanApply(p) }, func(j *models.Job) {
			j.ApplyPatch(p, s.base.Add(time.Hour))
		})
		s.Require().NoError(err)

		found, err := s.store.FindByID(ctx, "j-1")
		s.Require().NoError(err)
		s.Equal("Senior Engineer", found.Title)
		s.Equal("55,000/month", found.Salary)
		s.Equal([]string{"Diploma"}, found.Requirements)
		s.Nil(found.ContactPhone)
		s.False(found.IsActive)
		s.True(s.base.Add(time.Hour).Equal(found.UpdatedAt))
	})

	s.Run("validation failure leaves row unchanged", func() {
		denied := errors.New("denied")
		_, err := s.store.Execute(ctx, "j-1", func(*models.Job) error { return denied }, func(j *models.Job) {
			j.Title = "should not persist"
		})
		s.ErrorIs(err, denied)

		found, err := s.store.FindByID(ctx, "j-1")
		s.Require().NoError(err)
		s.Equal("Senior Engineer", found.Title)
	})

	s.Run("missing job", func() {
		_, err := s.store.Execute(ctx, "missing", func(*models.Job) error { return nil }, func(*models.Job) {})
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *StoreSuite) TestDelete() {
	ctx := context.Background()
	s.seed("j-1", "Health", "Clinic", 0)

	denied := errors.New("denied")
	s.ErrorIs(s.store.Delete(ctx, "j-1", func(*models.Job) error { return denied }), denied)
	_, err := s.store.FindByID(ctx, "j-1")
	s.Require().NoError(err)

	s.Require().NoError(s.store.Delete(ctx, "j-1", func(*models.Job) error { return nil }))
	_, err = s.store.FindByID(ctx, "j-1")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Delete(ctx, "j-1", func(*models.Job) error { return nil }), sentinel.ErrNotFound)
}

func ids(list []*models.Job) []string {
	out := make([]string, 0, len(list))
	for _, j := range list {
		out = append(out, j.ID)
	}
	return out
}
