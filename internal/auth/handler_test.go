package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fibra-studio/fibra-core/internal/auth"
	"github.com/fibra-studio/fibra-core/internal/platform/httpx"
	"github.com/fibra-studio/fibra-core/internal/rbac"
	"github.com/fibra-studio/fibra-core/internal/shared"
	"github.com/fibra-studio/fibra-core/internal/users"
	_ "github.com/fibra-studio/fibra-core/testing"
)

// committingWriter flushes session state right before the first header
// write, mirroring the app middleware.
type committingWriter struct {
	http.ResponseWriter
	ctx           context.Context
	manager       *shared.SessionManager
	sess          *shared.Session
	headerWritten bool
}

func (w *committingWriter) WriteHeader(statusCode int) {
	if !w.headerWritten {
		w.headerWritten = true
		_ = w.manager.Commit(w.ctx, w.ResponseWriter, w.sess)
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *committingWriter) Write(data []byte) (int, error) {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

type stubAccounts struct {
	user *users.User
}

func (s *stubAccounts) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, httpx.ErrNotFound
	}
	return s.user, nil
}

func newLoginRouter(t *testing.T, accounts auth.Accounts) (chi.Router, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	manager := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := manager.Load(req.Context(), req)
			require.NoError(t, err)
			ctx := shared.ContextWithSession(req.Context(), sess)
			next.ServeHTTP(&committingWriter{ResponseWriter: w, ctx: ctx, manager: manager, sess: sess}, req.WithContext(ctx))
		})
	})
	r.Route("/auth", auth.NewHandler(nil, auth.NewService(accounts)).MountRoutes)
	return r, manager
}

func activeUser(t *testing.T, password string) *users.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	return &users.User{
		ID:           uuid.New(),
		Email:        "camila@fibra.studio",
		Name:         "Camila Vega",
		Role:         rbac.RoleSales,
		PasswordHash: string(hash),
		IsActive:     true,
	}
}

func TestLoginSucceedsAndBindsSession(t *testing.T) {
	user := activeUser(t, "correct-horse")
	router, manager := newLoginRouter(t, &stubAccounts{user: user})

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"camila@fibra.studio","password":"correct-horse"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"SALES"`)

	var sessionCookie *http.Cookie
	for _, c := range res.Result().Cookies() {
		if c.Name == manager.CookieName() {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "login must set the session cookie")

	follow := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	follow.AddCookie(sessionCookie)
	sess, err := manager.Load(context.Background(), follow)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), sess.User())
}

func TestLoginWrongPasswordRejected(t *testing.T) {
	router, _ := newLoginRouter(t, &stubAccounts{user: activeUser(t, "correct-horse")})

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"camila@fibra.studio","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginUnknownAccountSameError(t *testing.T) {
	router, _ := newLoginRouter(t, &stubAccounts{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"nobody@fibra.studio","password":"whatever"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLogoutClearsSessionUser(t *testing.T) {
	user := activeUser(t, "correct-horse")
	router, manager := newLoginRouter(t, &stubAccounts{user: user})

	login := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"camila@fibra.studio","password":"correct-horse"}`))
	login.Header.Set("Content-Type", "application/json")
	loginRes := httptest.NewRecorder()
	router.ServeHTTP(loginRes, login)
	require.Equal(t, http.StatusOK, loginRes.Code)

	var cookie *http.Cookie
	for _, c := range loginRes.Result().Cookies() {
		if c.Name == manager.CookieName() {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	logout := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	logout.AddCookie(cookie)
	logoutRes := httptest.NewRecorder()
	router.ServeHTTP(logoutRes, logout)
	require.Equal(t, http.StatusOK, logoutRes.Code)

	check := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	check.AddCookie(cookie)
	sess, err := manager.Load(context.Background(), check)
	require.NoError(t, err)
	assert.Empty(t, sess.User())
}

func TestPermissionsEndpointListsAccessibleModules(t *testing.T) {
	user := activeUser(t, "correct-horse")
	router, _ := newLoginRouter(t, &stubAccounts{user: user})

	// The permissions endpoint reads the resolved principal; install it
	// directly rather than running the full middleware chain.
	req := httptest.NewRequest(http.MethodGet, "/auth/permissions", nil)
	ctx := auth.ContextWithPrincipal(req.Context(), auth.Principal{ID: user.ID, Role: user.Role, Email: user.Email})
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req.WithContext(ctx))

	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, `"sales"`)
	assert.Contains(t, body, `"dashboard"`)
	assert.NotContains(t, body, `"settings"`)
}
