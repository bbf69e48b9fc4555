package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	emergencymetrics "cityconnect/internal/emergency/metrics"
	"cityconnect/internal/emergency/models"
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
	publisher     *notifymocks.MockPublisher
	metrics       *emergencymetrics.Metrics
	policyMetrics *policymetrics.Metrics
	now           time.Time
	service       *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.publisher = notifymocks.NewMockPublisher(gomock.NewController(s.T()))
	s.metrics = emergencymetrics.NewWithRegisterer(prometheus.NewRegistry())
	s.policyMetrics = policymetrics.NewWithRegisterer(prometheus.NewRegistry())
	s.now = time.Date(2024, 6, 1, 22, 30, 0, 0, time.UTC)
	s.service = New(s.publisher, policy.NewKernel(policy.DefaultConfig()),
		WithMetrics(s.metrics),
		WithPolicyMetrics(s.policyMetrics),
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *ServiceSuite) as(role domain.Role, dept, subject string) context.Context {
	actor, err := domain.NewActor(role, dept, subject)
	s.Require().NoError(err)
	ctx := requestcontext.WithActor(context.Background(), actor)
	return requestcontext.WithRequestID(ctx, "req-9")
}

func (s *ServiceSuite) TestRaiseSOSPublishesEvent() {
	var published notify.Event
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, e notify.Event) { published = e })

	sos, err := s.service.RaiseSOS(s.as(domain.RoleCitizen, "", "citizen-1"), models.SOSDraft{
		RequesterID:   "someone-else",
		Location:      "MG Road",
		EmergencyType: "Medical",
	})
	s.Require().NoError(err)
	s.Equal("citizen-1", sos.RequesterID)
	s.Equal(models.DefaultMessage, sos.Message)
	s.Equal(s.now, sos.RaisedAt)

	s.Equal(notify.EventSOSRaised, published.Type)
	s.Equal(sos.ID, published.ResourceID)
	s.Equal("citizen-1", published.SubjectID)
	s.Equal("req-9", published.RequestID)
	s.Empty(published.Department)
	s.Equal("MG Road", published.Attributes["location"])
	s.Equal("Medical", published.Attributes["emergency_type"])
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SOSRaised))
}

func (s *ServiceSuite) TestDepartmentSOSCarriesDepartment() {
	var published notify.Event
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, e notify.Event) { published = e })

	_, err := s.service.RaiseSOS(s.as(domain.RoleDepartment, "Fire", "official-fire"), models.SOSDraft{})
	s.Require().NoError(err)
	s.Equal("Fire", published.Department)
	s.Equal(models.DefaultEmergencyType, published.Attributes["emergency_type"])
}

func (s *ServiceSuite) TestRaiseSOSRequiresActor() {
	_, err := s.service.RaiseSOS(context.Background(), models.SOSDraft{})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	stranger := requestcontext.WithActor(context.Background(), domain.Actor{Role: domain.Role("auditor"), SubjectID: "x"})
	_, err = s.service.RaiseSOS(stranger, models.SOSDraft{})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.Equal(1.0, testutil.ToFloat64(s.policyMetrics.Denials.WithLabelValues(policy.ResourceSOS, policy.ActionCreate, "auditor")))
	s.Zero(testutil.ToFloat64(s.metrics.SOSRaised))
}

func (s *ServiceSuite) TestContacts() {
	list, err := s.service.Contacts(s.as(domain.RoleCitizen, "", "citizen-1"))
	s.Require().NoError(err)
	s.Len(list, 4)

	_, err = s.service.Contacts(context.Background())
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestNilPublisherDropsEvents() {
	svc := New(nil, policy.NewKernel(policy.DefaultConfig()))
	_, err := svc.RaiseSOS(s.as(domain.RoleAdmin, "", "admin-1"), models.SOSDraft{})
	s.NoError(err)
}
