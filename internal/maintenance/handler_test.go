package maintenance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fibra-studio/fibra-core/internal/auth"
	"github.com/fibra-studio/fibra-core/internal/rbac"
)

func newTestRouter(coord *Coordinator) chi.Router {
	r := chi.NewRouter()
	r.Route("/maintenance", NewHandler(coord).MountRoutes)
	return r
}

func asPrincipal(r *http.Request, role rbac.Role, id uuid.UUID) *http.Request {
	ctx := auth.ContextWithPrincipal(r.Context(), auth.Principal{ID: id, Role: role, Email: "tester@fibra.studio"})
	return r.WithContext(ctx)
}

func TestKickoffRequiresAuthentication(t *testing.T) {
	coord := NewCoordinator(NewGuardStore(), testLogger(), nil)
	req := httptest.NewRequest(http.MethodPost, "/maintenance/kickoff", nil)
	res := httptest.NewRecorder()
	newTestRouter(coord).ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestKickoffReturnsPerTaskResults(t *testing.T) {
	tasks := []Task{
		{
			Name:        "seed_default_banks",
			Key:         GlobalKey("catalog:banks"),
			MinInterval: 30 * time.Minute,
			Modules:     []rbac.Module{rbac.ModuleSettings},
			Run:         func(context.Context, uuid.UUID) error { return nil },
		},
		{
			Name:        "sales_data_quality",
			Key:         PerUserKey("quality:sales"),
			MinInterval: 20 * time.Minute,
			Modules:     []rbac.Module{rbac.ModuleSales},
			Run:         func(context.Context, uuid.UUID) error { return nil },
		},
	}
	coord := NewCoordinator(NewGuardStore(), testLogger(), tasks)

	req := asPrincipal(httptest.NewRequest(http.MethodPost, "/maintenance/kickoff", nil), rbac.RoleAdmin, uuid.New())
	res := httptest.NewRecorder()
	newTestRouter(coord).ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var body kickoffResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Results, 2)
	for _, r := range body.Results {
		assert.True(t, r.Executed)
		assert.Empty(t, r.Error)
	}
}

func TestKickoffSucceedsEvenWhenTasksFail(t *testing.T) {
	tasks := []Task{
		{
			Name:        "sync_invoices_from_milestones",
			Key:         GlobalKey("billing:invoice-sync"),
			MinInterval: 15 * time.Minute,
			Modules:     []rbac.Module{rbac.ModuleSales},
			Run: func(context.Context, uuid.UUID) error {
				return context.DeadlineExceeded
			},
		},
	}
	coord := NewCoordinator(NewGuardStore(), testLogger(), tasks)

	req := asPrincipal(httptest.NewRequest(http.MethodPost, "/maintenance/kickoff", nil), rbac.RoleSales, uuid.New())
	res := httptest.NewRecorder()
	newTestRouter(coord).ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var body kickoffResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Results, 1)
	assert.True(t, body.Results[0].Executed)
	assert.NotEmpty(t, body.Results[0].Error)
}

func TestKickoffSecondCallThrottled(t *testing.T) {
	tasks := []Task{
		{
			Name:        "seed_default_services",
			Key:         GlobalKey("catalog:services"),
			MinInterval: 30 * time.Minute,
			Modules:     []rbac.Module{rbac.ModuleMarketing},
			Run:         func(context.Context, uuid.UUID) error { return nil },
		},
	}
	coord := NewCoordinator(NewGuardStore(), testLogger(), tasks)
	router := newTestRouter(coord)
	userID := uuid.New()

	for i, wantExecuted := range []bool{true, false} {
		req := asPrincipal(httptest.NewRequest(http.MethodPost, "/maintenance/kickoff", nil), rbac.RoleMarketing, userID)
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		require.Equal(t, http.StatusOK, res.Code)
		var body kickoffResponse
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
		require.Len(t, body.Results, 1, "call %d", i)
		assert.Equal(t, wantExecuted, body.Results[0].Executed, "call %d", i)
	}
}
