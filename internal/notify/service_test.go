package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fibra-studio/fibra-core/internal/platform/httpx"
	"github.com/fibra-studio/fibra-core/internal/rbac"
	"github.com/fibra-studio/fibra-core/internal/users"
)

type mockStore struct {
	mu            sync.Mutex
	notifications []Notification
	dedupeKeys    map[string]struct{}
	now           func() time.Time

	insertErr error
	existsErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		dedupeKeys: make(map[string]struct{}),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (m *mockStore) Insert(ctx context.Context, in Input) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	if in.DedupeKey != "" {
		key := in.UserID.String() + "|" + in.DedupeKey
		if _, taken := m.dedupeKeys[key]; taken {
			return nil, httpx.ErrDuplicate
		}
		m.dedupeKeys[key] = struct{}{}
	}
	n := Notification{
		ID:        uuid.New(),
		UserID:    in.UserID,
		Type:      in.Type,
		Message:   in.Message,
		CreatedAt: m.now(),
	}
	m.notifications = append(m.notifications, n)
	return &n, nil
}

func (m *mockStore) InsertMany(ctx context.Context, inputs []Input) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, in := range inputs {
		m.notifications = append(m.notifications, Notification{
			ID:        uuid.New(),
			UserID:    in.UserID,
			Type:      in.Type,
			Message:   in.Message,
			CreatedAt: m.now(),
		})
	}
	return nil
}

func (m *mockStore) ExistsSince(ctx context.Context, userID uuid.UUID, ntype string, since time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	for _, n := range m.notifications {
		if n.UserID == userID && n.Type == ntype && !n.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockStore) UnreadTypes(ctx context.Context, userID uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			out = append(out, n.Type)
		}
	}
	return out, nil
}

func (m *mockStore) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == id && m.notifications[i].UserID == userID {
			m.notifications[i].Read = true
			return nil
		}
	}
	return httpx.ErrNotFound
}

func (m *mockStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notifications)
}

type mockDirectory struct {
	byRole map[rbac.Role][]users.User
	byID   map[uuid.UUID]*users.User
}

func (m *mockDirectory) ListByRoles(ctx context.Context, roles []rbac.Role) ([]users.User, error) {
	var out []users.User
	for _, role := range roles {
		out = append(out, m.byRole[role]...)
	}
	return out, nil
}

func (m *mockDirectory) GetByID(ctx context.Context, id uuid.UUID) (*users.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return u, nil
}

type mockMailer struct {
	mu    sync.Mutex
	sends [][]string
	err   error
}

func (m *mockMailer) Send(ctx context.Context, to []string, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sends = append(m.sends, to)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedClock pins the service and store to the same instant so window
// arithmetic is deterministic. The returned func advances both.
func fixedClock(s *Service, store *mockStore, at time.Time) func(time.Time) {
	current := at
	tick := func() time.Time { return current }
	s.clock = tick
	store.now = tick
	return func(t time.Time) { current = t }
}

func TestNotifyRolesFansOutAndBatchesEmail(t *testing.T) {
	store := newMockStore()
	accountant := users.User{ID: uuid.New(), Email: "cont@fibra.studio", Role: rbac.RoleAccounting}
	manager := users.User{ID: uuid.New(), Email: "", Role: rbac.RoleManagement}
	directory := &mockDirectory{byRole: map[rbac.Role][]users.User{
		rbac.RoleAccounting: {accountant},
		rbac.RoleManagement: {manager},
	}}
	mailer := &mockMailer{}
	svc := NewService(store, directory, mailer, testLogger(), Config{EmailEnabled: true})

	err := svc.NotifyRoles(context.Background(), []rbac.Role{rbac.RoleAccounting, rbac.RoleManagement}, TypeInvoiceOverdue, "Invoice FC-0012 is overdue.")
	require.NoError(t, err)

	assert.Equal(t, 2, store.count(), "one row per resolved user")
	require.Len(t, mailer.sends, 1, "single batched email")
	assert.Equal(t, []string{"cont@fibra.studio"}, mailer.sends[0], "empty addresses excluded")
}

func TestNotifyRolesEmptyResolutionIsNoop(t *testing.T) {
	store := newMockStore()
	mailer := &mockMailer{}
	svc := NewService(store, &mockDirectory{byRole: map[rbac.Role][]users.User{}}, mailer, testLogger(), Config{EmailEnabled: true})

	err := svc.NotifyRoles(context.Background(), []rbac.Role{rbac.RoleMarketing}, TypeNewLead, "New lead.")
	require.NoError(t, err)
	assert.Zero(t, store.count())
	assert.Empty(t, mailer.sends)
}

func TestNotifyRolesEmailFailureDoesNotRollBack(t *testing.T) {
	store := newMockStore()
	target := users.User{ID: uuid.New(), Email: "sales@fibra.studio", Role: rbac.RoleSales}
	directory := &mockDirectory{byRole: map[rbac.Role][]users.User{rbac.RoleSales: {target}}}
	mailer := &mockMailer{err: errors.New("smtp unreachable")}
	svc := NewService(store, directory, mailer, testLogger(), Config{EmailEnabled: true})

	err := svc.NotifyRoles(context.Background(), []rbac.Role{rbac.RoleSales}, TypeNewLead, "New lead from web form.")
	require.NoError(t, err, "email failure must not surface to the caller")
	assert.Equal(t, 1, store.count(), "persisted rows stand")
}

func TestNotifyRolesEmailDisabled(t *testing.T) {
	store := newMockStore()
	target := users.User{ID: uuid.New(), Email: "sales@fibra.studio", Role: rbac.RoleSales}
	directory := &mockDirectory{byRole: map[rbac.Role][]users.User{rbac.RoleSales: {target}}}
	mailer := &mockMailer{}
	svc := NewService(store, directory, mailer, testLogger(), Config{EmailEnabled: false})

	require.NoError(t, svc.NotifyRoles(context.Background(), []rbac.Role{rbac.RoleSales}, TypeNewLead, "msg"))
	assert.Equal(t, 1, store.count())
	assert.Empty(t, mailer.sends)
}

func TestNotifyUserOnceRespectsWindow(t *testing.T) {
	store := newMockStore()
	userID := uuid.New()
	svc := NewService(store, &mockDirectory{}, nil, testLogger(), Config{})
	advance := fixedClock(svc, store, time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC))

	created, err := svc.NotifyUserOnce(context.Background(), userID, TypeContactDataMissing, "3 contacts incomplete.", time.Hour)
	require.NoError(t, err)
	assert.True(t, created)

	// Second call inside the window is suppressed.
	created, err = svc.NotifyUserOnce(context.Background(), userID, TypeContactDataMissing, "3 contacts incomplete.", time.Hour)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, store.count())

	// After the window elapses a new row is created.
	advance(time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC))
	created, err = svc.NotifyUserOnce(context.Background(), userID, TypeContactDataMissing, "3 contacts incomplete.", time.Hour)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, store.count())
}

func TestNotifyUserOnceIndependentTypesAndUsers(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, &mockDirectory{}, nil, testLogger(), Config{})
	alice, bob := uuid.New(), uuid.New()

	for _, call := range []struct {
		user  uuid.UUID
		ntype string
	}{
		{alice, TypeContactDataMissing},
		{alice, TypeProjectDataMissing},
		{bob, TypeContactDataMissing},
	} {
		created, err := svc.NotifyUserOnce(context.Background(), call.user, call.ntype, "msg", time.Hour)
		require.NoError(t, err)
		assert.True(t, created)
	}
	assert.Equal(t, 3, store.count())
}

func TestNotifyUserOnceDedupeKeyCollisionIsBenign(t *testing.T) {
	store := newMockStore()
	userID := uuid.New()
	svc := NewService(store, &mockDirectory{}, nil, testLogger(), Config{})

	// Simulate another instance winning the race: the key is taken but the
	// local exists-check sees nothing (empty notifications list).
	now := time.Now().UTC()
	store.dedupeKeys[userID.String()+"|"+dedupeKey(TypeContactDataMissing, now, time.Hour)] = struct{}{}
	fixedClock(svc, store, now)

	created, err := svc.NotifyUserOnce(context.Background(), userID, TypeContactDataMissing, "msg", time.Hour)
	require.NoError(t, err, "unique violation is not an error")
	assert.False(t, created)
}

func TestNotifyUserOnceDefaultWindow(t *testing.T) {
	store := newMockStore()
	userID := uuid.New()
	svc := NewService(store, &mockDirectory{}, nil, testLogger(), Config{})
	advance := fixedClock(svc, store, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC))

	created, err := svc.NotifyUserOnce(context.Background(), userID, TypeTaskDue, "Task due.", 0)
	require.NoError(t, err)
	assert.True(t, created)

	// 11 hours later still inside the 12h default.
	advance(time.Date(2026, 8, 28, 11, 0, 0, 0, time.UTC))
	created, err = svc.NotifyUserOnce(context.Background(), userID, TypeTaskDue, "Task due.", 0)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestNotifyUserSingleInsert(t *testing.T) {
	store := newMockStore()
	userID := uuid.New()
	directory := &mockDirectory{byID: map[uuid.UUID]*users.User{
		userID: {ID: userID, Email: "pm@fibra.studio"},
	}}
	mailer := &mockMailer{}
	svc := NewService(store, directory, mailer, testLogger(), Config{EmailEnabled: true})

	require.NoError(t, svc.NotifyUser(context.Background(), userID, TypeReportReady, "Monthly report is ready."))
	assert.Equal(t, 1, store.count())
	require.Len(t, mailer.sends, 1)
	assert.Equal(t, []string{"pm@fibra.studio"}, mailer.sends[0])
}

func TestMarkReadIsMonotonic(t *testing.T) {
	store := newMockStore()
	userID := uuid.New()
	svc := NewService(store, &mockDirectory{}, nil, testLogger(), Config{})

	require.NoError(t, svc.NotifyUser(context.Background(), userID, TypeProjectUpdate, "Project updated."))
	id := store.notifications[0].ID

	require.NoError(t, svc.MarkRead(context.Background(), id, userID))
	assert.True(t, store.notifications[0].Read)

	// Marking again is a no-op, never a revert.
	require.NoError(t, svc.MarkRead(context.Background(), id, userID))
	assert.True(t, store.notifications[0].Read)
}
