package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"cityconnect/internal/feedback/handler/mocks"
	"cityconnect/internal/feedback/models"
	dErrors "cityconnect/pkg/domain-errors"
	"cityconnect/pkg/testutil"
)

func TestFeedbackEndpoints(t *testing.T) {
	svc := mocks.NewMockService(gomock.NewController(t))
	router := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(router)

	t.Run("submit", func(t *testing.T) {
		svc.EXPECT().Submit(gomock.Any(), models.Draft{Rating: 5, Suggestion: "Great portal"}).
			Return(&models.Feedback{ID: "f-1", OwnerID: "citizen-1", Rating: 5, Suggestion: "Great portal"}, nil)
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/feedback", map[string]any{
			"rating": 5, "suggestion": " Great portal ",
		}))
		testutil.AssertStatus(t, rr, http.StatusCreated)
		testutil.AssertJSONContains(t, rr, "id", "f-1")
	})

	t.Run("rating out of range", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/feedback", map[string]any{
			"rating": 9, "suggestion": "x",
		}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("malformed body", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/feedback", `{"rating":`))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})

	t.Run("department listing is forbidden", func(t *testing.T) {
		svc.EXPECT().List(gomock.Any()).Return(nil, dErrors.New(dErrors.CodeForbidden, "departments may not read feedback"))
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/feedback"))
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})
}
