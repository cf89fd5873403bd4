package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fibra-studio/fibra-core/internal/shared"
	_ "github.com/fibra-studio/fibra-core/testing"
)

func newManager(t *testing.T) (*shared.SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return shared.NewSessionManager(client, "test_session", "secret", time.Hour, false), mr
}

func TestSessionRoundTrip(t *testing.T) {
	manager, _ := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUser("3b1e8a4e-8a94-4f3e-9a41-92e6f9f0b7cd")

	res := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, res, sess))

	cookies := res.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "test_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	reloaded, err := manager.Load(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, "3b1e8a4e-8a94-4f3e-9a41-92e6f9f0b7cd", reloaded.User())
}

func TestSessionMissingCookieIsAnonymous(t *testing.T) {
	manager, _ := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, sess.User())
}

func TestSessionExpiredStateIsAnonymous(t *testing.T) {
	manager, mr := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUser("some-user")
	res := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, res, sess))

	mr.FastForward(2 * time.Hour)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(res.Result().Cookies()[0])
	reloaded, err := manager.Load(ctx, next)
	require.NoError(t, err)
	assert.Empty(t, reloaded.User())
}

func TestSessionDestroyClearsStateAndCookie(t *testing.T) {
	manager, _ := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUser("user-id")
	res := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, res, sess))
	cookie := res.Result().Cookies()[0]

	again := httptest.NewRequest(http.MethodGet, "/", nil)
	again.AddCookie(cookie)
	loaded, err := manager.Load(ctx, again)
	require.NoError(t, err)
	manager.Destroy(loaded)

	out := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, out, loaded))
	expired := out.Result().Cookies()
	require.Len(t, expired, 1)
	assert.Equal(t, -1, expired[0].MaxAge)

	final := httptest.NewRequest(http.MethodGet, "/", nil)
	final.AddCookie(cookie)
	reloaded, err := manager.Load(ctx, final)
	require.NoError(t, err)
	assert.Empty(t, reloaded.User())
}
