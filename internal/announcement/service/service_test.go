package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	announcementmetrics "cityconnect/internal/announcement/metrics"
	"cityconnect/internal/announcement/models"
	"cityconnect/internal/announcement/service/mocks"
	"cityconnect/internal/announcement/store"
	"cityconnect/internal/notify"
	notifymocks "cityconnect/internal/notify/mocks"
	"cityconnect/internal/policy"
	policymetrics "cityconnect/internal/policy/metrics"
	"cityconnect/pkg/domain"
	dErrors "cityconnect/pkg/domain-errors"
	"cityconnect/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	publisher     *notifymocks.MockPublisher
	store         *store.InMemory
	metrics       *announcementmetrics.Metrics
	policyMetrics *policymetrics.Metrics
	now           time.Time
	service       *Service

	mu     sync.Mutex
	events []notify.Event

	citizen domain.Actor
	water   domain.Actor
	roads   domain.Actor
	admin   domain.Actor
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.publisher = notifymocks.NewMockPublisher(s.ctrl)
	s.events = nil
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, e notify.Event) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.events = append(s.events, e)
		}).AnyTimes()
	s.store = store.NewInMemory()
	s.metrics = announcementmetrics.NewWithRegisterer(prometheus.NewRegistry())
	s.policyMetrics = policymetrics.NewWithRegisterer(prometheus.NewRegistry())
	s.now = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	s.service = s.newService(policy.DefaultConfig())

	s.citizen = s.actor(domain.RoleCitizen, "", "citizen-1")
	s.water = s.actor(domain.RoleDepartment, "Water", "official-water")
	s.roads = s.actor(domain.RoleDepartment, "Roads", "official-roads")
	s.admin = s.actor(domain.RoleAdmin, "", "admin-1")
}

func (s *ServiceSuite) newService(cfg policy.Config) *Service {
	return New(s.store, policy.NewKernel(cfg),
		WithPublisher(s.publisher),
		WithMetrics(s.metrics),
		WithPolicyMetrics(s.policyMetrics),
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *ServiceSuite) actor(role domain.Role, dept, subject string) domain.Actor {
	a, err := domain.NewActor(role, dept, subject)
	s.Require().NoError(err)
	return a
}

func as(actor domain.Actor) context.Context {
	ctx := requestcontext.WithActor(context.Background(), actor)
	return requestcontext.WithRequestID(ctx, "req-1")
}

func ptr[T any](v T) *T {
	return &v
}

func (s *ServiceSuite) draft(title string, day int, target *string) models.Draft {
	return models.Draft{
		Title:            title,
		Description:      title + " details",
		Category:         models.CategoryNotice,
		Date:             time.Date(2024, 6, day, 10, 0, 0, 0, time.UTC),
		TargetDepartment: target,
	}
}

func (s *ServiceSuite) publish(actor domain.Actor, d models.Draft) *models.Announcement {
	a, err := s.service.Create(as(actor), d)
	s.Require().NoError(err)
	return a
}

func (s *ServiceSuite) lastEvent() notify.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Require().NotEmpty(s.events)
	return s.events[len(s.events)-1]
}

func ids(list []*models.Announcement) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}

func (s *ServiceSuite) TestCreate() {
	s.Run("admin publishes a global announcement", func() {
		a := s.publish(s.admin, s.draft("Water outage", 3, nil))
		s.True(a.IsGlobal())
		s.True(a.IsActive)
		s.Equal("admin-1", a.CreatorID)

		e := s.lastEvent()
		s.Equal(notify.EventAnnouncementCreated, e.Type)
		s.Equal(a.ID, e.ResourceID)
		s.Empty(e.Department)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Published.WithLabelValues(audienceGlobal)))
	})

	s.Run("admin targets a department", func() {
		a := s.publish(s.admin, s.draft("Pipe works", 4, ptr("Water")))
		s.Require().NotNil(a.TargetDepartment)
		s.Equal("Water", *a.TargetDepartment)
	})

	s.Run("department is forced to its own department", func() {
		a := s.publish(s.water, s.draft("Meter reading", 5, ptr("Roads")))
		s.Require().NotNil(a.TargetDepartment)
		s.Equal("Water", *a.TargetDepartment)
		s.Equal("Water", s.lastEvent().Department)

		global := s.publish(s.water, s.draft("Hydrant test", 6, nil))
		s.Equal("Water", *global.TargetDepartment)
		s.Equal(3.0, testutil.ToFloat64(s.metrics.Published.WithLabelValues(audienceDepartment)))
	})

	s.Run("citizen is forbidden", func() {
		_, err := s.service.Create(as(s.citizen), s.draft("Block party", 7, nil))
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("missing title is a validation error", func() {
		_, err := s.service.Create(as(s.admin), s.draft("  ", 7, nil))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestVisibility() {
	global := s.publish(s.admin, s.draft("Global", 1, nil))
	water := s.publish(s.water, s.draft("Water", 2, nil))
	roads := s.publish(s.roads, s.draft("Roads", 3, nil))
	hidden := s.publish(s.admin, s.draft("Hidden", 4, nil))
	_, err := s.service.Deactivate(as(s.admin), hidden.ID)
	s.Require().NoError(err)

	s.Run("citizen sees active global announcements", func() {
		list, err := s.service.List(as(s.citizen), ListQuery{})
		s.Require().NoError(err)
		s.Equal([]string{global.ID}, ids(list))

		_, err = s.service.Get(as(s.citizen), water.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		_, err = s.service.Get(as(s.citizen), hidden.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("affiliated citizen also sees their department", func() {
		svc := s.newService(policy.Config{
			ComplaintScope:       policy.ComplaintScopeAll,
			CitizenAnnouncements: policy.AnnouncementScopeAffiliated,
		})
		list, err := svc.List(as(s.citizen.WithAffiliation("Water")), ListQuery{})
		s.Require().NoError(err)
		s.Equal([]string{water.ID, global.ID}, ids(list))
	})

	s.Run("department sees global and its own, including inactive", func() {
		list, err := s.service.List(as(s.water), ListQuery{})
		s.Require().NoError(err)
		s.Equal([]string{hidden.ID, water.ID, global.ID}, ids(list))

		_, err = s.service.Get(as(s.water), roads.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("admin sees everything newest first", func() {
		list, err := s.service.List(as(s.admin), ListQuery{})
		s.Require().NoError(err)
		s.Equal([]string{hidden.ID, roads.ID, water.ID, global.ID}, ids(list))
	})

	s.Run("category narrows the listing", func() {
		list, err := s.service.List(as(s.admin), ListQuery{Category: ptr(models.CategoryAlert)})
		s.Require().NoError(err)
		s.Empty(list)
	})

	s.Run("unauthenticated", func() {
		_, err := s.service.List(context.Background(), ListQuery{})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ServiceSuite) TestUpdate() {
	global := s.publish(s.admin, s.draft("Global", 1, nil))
	water := s.publish(s.water, s.draft("Water", 2, nil))
	roads := s.publish(s.roads, s.draft("Roads", 3, nil))

	s.Run("department edits its own announcement and stays pinned", func() {
		s.now = s.now.Add(time.Hour)
		updated, err := s.service.Update(as(s.water), water.ID, models.Patch{
			Title:            ptr("Water (rescheduled)"),
			TargetDepartment: ptr(""),
		})
		s.Require().NoError(err)
		s.Equal("Water (rescheduled)", updated.Title)
		s.Require().NotNil(updated.TargetDepartment)
		s.Equal("Water", *updated.TargetDepartment)
		s.Equal(s.now, updated.UpdatedAt)
		s.Equal(notify.EventAnnouncementUpdated, s.lastEvent().Type)
	})

	for name, target := range map[string]*models.Announcement{"global": global, "another department's": roads} {
		s.Run("department may not edit "+name+" announcements", func() {
			_, err := s.service.Update(as(s.water), target.ID, models.Patch{Title: ptr("Hijacked")})
			s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

			unchanged, err := s.service.Get(as(s.admin), target.ID)
			s.Require().NoError(err)
			s.Equal(target.Title, unchanged.Title)
			s.Equal(target.TargetDepartment, unchanged.TargetDepartment)
		})
	}

	s.Run("admin can make an announcement global", func() {
		updated, err := s.service.Update(as(s.admin), roads.ID, models.Patch{TargetDepartment: ptr("")})
		s.Require().NoError(err)
		s.True(updated.IsGlobal())
	})

	s.Run("admin can reactivate", func() {
		_, err := s.service.Deactivate(as(s.admin), global.ID)
		s.Require().NoError(err)
		updated, err := s.service.Update(as(s.admin), global.ID, models.Patch{IsActive: ptr(true)})
		s.Require().NoError(err)
		s.True(updated.IsActive)
	})

	s.Run("empty patch is a validation error", func() {
		_, err := s.service.Update(as(s.water), water.ID, models.Patch{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("blank title is a validation error", func() {
		_, err := s.service.Update(as(s.admin), global.ID, models.Patch{Title: ptr(" ")})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("citizen is forbidden", func() {
		_, err := s.service.Update(as(s.citizen), global.ID, models.Patch{Title: ptr("Mine")})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown announcement", func() {
		_, err := s.service.Update(as(s.admin), domain.NewID(), models.Patch{Title: ptr("Nope")})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Equal(2.0, testutil.ToFloat64(s.policyMetrics.Denials.WithLabelValues(policy.ResourceAnnouncement, policy.ActionMutate, string(domain.RoleDepartment))))
}

func (s *ServiceSuite) TestDeactivateAndDelete() {
	water := s.publish(s.water, s.draft("Water", 2, nil))
	roads := s.publish(s.roads, s.draft("Roads", 3, nil))

	s.Run("department deactivates its own", func() {
		updated, err := s.service.Deactivate(as(s.water), water.ID)
		s.Require().NoError(err)
		s.False(updated.IsActive)
		s.Equal(notify.EventAnnouncementDeactivated, s.lastEvent().Type)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Changes.WithLabelValues(changeDeactivated)))
	})

	s.Run("department may not deactivate another department's", func() {
		_, err := s.service.Deactivate(as(s.water), roads.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		got, err := s.service.Get(as(s.roads), roads.ID)
		s.Require().NoError(err)
		s.True(got.IsActive)
	})

	s.Run("department may not delete another department's", func() {
		err := s.service.Delete(as(s.water), roads.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		_, err = s.service.Get(as(s.admin), roads.ID)
		s.NoError(err)
	})

	s.Run("admin deletes", func() {
		s.Require().NoError(s.service.Delete(as(s.admin), roads.ID))
		e := s.lastEvent()
		s.Equal(notify.EventAnnouncementDeleted, e.Type)
		s.Equal(roads.ID, e.ResourceID)
		s.Equal("Roads", e.Department)

		_, err := s.service.Get(as(s.admin), roads.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.True(dErrors.HasCode(s.service.Delete(as(s.admin), roads.ID), dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestStoreFailuresAreInternal() {
	mockStore := mocks.NewMockStore(s.ctrl)
	svc := New(mockStore, policy.NewKernel(policy.DefaultConfig()))
	boom := errors.New("disk I/O error")

	mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(boom)
	_, err := svc.Create(as(s.admin), s.draft("Global", 1, nil))
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.ErrorIs(err, boom)

	mockStore.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, boom)
	_, err = svc.List(as(s.citizen), ListQuery{})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	mockStore.EXPECT().Delete(gomock.Any(), "a-1", gomock.Any()).Return(boom)
	s.True(dErrors.HasCode(svc.Delete(as(s.admin), "a-1"), dErrors.CodeInternal))
}

func (s *ServiceSuite) TestExpiredDeadlineIsTimeout() {
	mockStore := mocks.NewMockStore(s.ctrl)
	svc := New(mockStore, policy.NewKernel(policy.DefaultConfig()))

	mockStore.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, fmt.Errorf("query announcements: %w", context.DeadlineExceeded))
	_, err := svc.List(as(s.citizen), ListQuery{})
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout), "got %v", err)
	s.ErrorIs(err, context.DeadlineExceeded)

	mockStore.EXPECT().Delete(gomock.Any(), "a-1", gomock.Any()).Return(context.Canceled)
	s.True(dErrors.HasCode(svc.Delete(as(s.admin), "a-1"), dErrors.CodeTimeout))
}

func (s *ServiceSuite) TestListPushesAudienceToStore() {
	mockStore := mocks.NewMockStore(s.ctrl)
	svc := New(mockStore, policy.NewKernel(policy.DefaultConfig()))

	mockStore.EXPECT().List(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, f models.Filter) ([]*models.Announcement, error) {
			s.Require().NotNil(f.Audience)
			s.True(f.Audience.IncludeGlobal)
			s.Equal([]string{"Water"}, f.Audience.Departments)
			s.False(f.ActiveOnly)
			return nil, nil
		})
	_, err := svc.List(as(s.water), ListQuery{})
	s.NoError(err)
}
