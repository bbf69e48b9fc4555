package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"cityconnect/internal/emergency/handler/mocks"
	"cityconnect/internal/emergency/models"
	dErrors "cityconnect/pkg/domain-errors"
	"cityconnect/pkg/testutil"
)

func newRouter(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	svc := mocks.NewMockService(gomock.NewController(t))
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r, svc
}

func TestHandleSOS(t *testing.T) {
	t.Run("forwards the trimmed payload", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().RaiseSOS(gomock.Any(), models.SOSDraft{Location: "MG Road", EmergencyType: "Fire"}).
			Return(&models.SOSRequest{ID: "s-1", Location: "MG Road", EmergencyType: "Fire", Message: models.DefaultMessage}, nil)

		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/emergency/sos", map[string]any{
			"location":       " MG Road ",
			"emergency_type": "Fire",
		}))
		testutil.AssertStatus(t, rr, http.StatusAccepted)
		got := testutil.UnmarshalResponse[models.SOSRequest](t, rr)
		assert.Equal(t, "s-1", got.ID)
		assert.Equal(t, models.DefaultMessage, got.Message)
	})

	t.Run("empty body raises a default sos", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().RaiseSOS(gomock.Any(), models.SOSDraft{}).Return(&models.SOSRequest{ID: "s-2"}, nil)

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/emergency/sos"))
		testutil.AssertStatus(t, rr, http.StatusAccepted)
	})

	t.Run("oversized message", func(t *testing.T) {
		router, _ := newRouter(t)
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/emergency/sos", map[string]any{
			"message": strings.Repeat("x", 501),
		}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("unauthenticated", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().RaiseSOS(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/emergency/sos"))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})
}

func TestHandleContacts(t *testing.T) {
	router, svc := newRouter(t)
	svc.EXPECT().Contacts(gomock.Any()).Return(models.Contacts(), nil)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/emergency/contacts"))
	testutil.AssertStatusOK(t, rr)
	body := testutil.UnmarshalResponse[ContactsResponse](t, rr)
	require.Len(t, body.Contacts, 4)
	assert.Equal(t, "Ambulance", body.Contacts[2].Name)
}
