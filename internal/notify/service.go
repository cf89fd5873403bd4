package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fibra-studio/fibra-core/internal/platform/httpx"
	"github.com/fibra-studio/fibra-core/internal/rbac"
	"github.com/fibra-studio/fibra-core/internal/users"
)

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, in Input) (*Notification, error)
	InsertMany(ctx context.Context, inputs []Input) error
	ExistsSince(ctx context.Context, userID uuid.UUID, ntype string, since time.Time) (bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error)
	UnreadTypes(ctx context.Context, userID uuid.UUID) ([]string, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}

// Directory resolves notification targets to accounts.
type Directory interface {
	ListByRoles(ctx context.Context, roles []rbac.Role) ([]users.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// Mailer relays notifications to the external email channel.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// Config carries fan-out tunables collected from app configuration.
type Config struct {
	// EmailEnabled gates the email relay entirely; persistence is unaffected.
	EmailEnabled bool
	// DefaultDedupeWindow applies when NotifyUserOnce gets a non-positive window.
	DefaultDedupeWindow time.Duration
	// EmailTimeout bounds each dispatch to the external channel.
	EmailTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.DefaultDedupeWindow <= 0 {
		c.DefaultDedupeWindow = 12 * time.Hour
	}
	if c.EmailTimeout <= 0 {
		c.EmailTimeout = 5 * time.Second
	}
	return c
}

// Service implements notification fan-out.
type Service struct {
	store     Store
	directory Directory
	mailer    Mailer
	logger    *slog.Logger
	cfg       Config
	clock     func() time.Time

	mu        sync.Mutex
	onceLocks map[string]*sync.Mutex
}

// NewService constructs a Service. mailer may be nil when email is disabled.
func NewService(store Store, directory Directory, mailer Mailer, logger *slog.Logger, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		directory: directory,
		mailer:    mailer,
		logger:    logger,
		cfg:       cfg.withDefaults(),
		clock:     func() time.Time { return time.Now().UTC() },
		onceLocks: make(map[string]*sync.Mutex),
	}
}

// NotifyRoles persists one notification per user holding any of the given
// roles, then sends a single batched email when the relay is enabled. An
// empty resolution is a no-op. Email failure never unwinds the inserts.
func (s *Service) NotifyRoles(ctx context.Context, roles []rbac.Role, ntype, message string) error {
	targets, err := s.directory.ListByRoles(ctx, roles)
	if err != nil {
		return fmt.Errorf("notify: resolve roles: %w", err)
	}
	if len(targets) == 0 {
		return nil
	}

	inputs := make([]Input, len(targets))
	recipients := make([]string, 0, len(targets))
	for i, target := range targets {
		inputs[i] = Input{UserID: target.ID, Type: ntype, Message: message}
		if addr := strings.TrimSpace(target.Email); addr != "" {
			recipients = append(recipients, addr)
		}
	}

	if err := s.store.InsertMany(ctx, inputs); err != nil {
		return fmt.Errorf("notify: persist fan-out: %w", err)
	}

	s.dispatchEmail(ctx, recipients, ntype, message)
	return nil
}

// NotifyUser persists exactly one notification and sends a best-effort
// single email when the relay is enabled.
func (s *Service) NotifyUser(ctx context.Context, userID uuid.UUID, ntype, message string) error {
	if _, err := s.store.Insert(ctx, Input{UserID: userID, Type: ntype, Message: message}); err != nil {
		return fmt.Errorf("notify: persist: %w", err)
	}

	if s.cfg.EmailEnabled {
		target, err := s.directory.GetByID(ctx, userID)
		if err != nil {
			s.logger.Warn("notify email target lookup failed", slog.Any("error", err))
			return nil
		}
		s.dispatchEmail(ctx, []string{target.Email}, ntype, message)
	}
	return nil
}

// NotifyUserOnce persists a notification unless the same (user, type) pair
// already produced one inside the window. Returns whether a row was created.
// The check and insert are serialised per (user, type); a concurrent writer
// that slips past on another instance is absorbed by the store's dedupe-key
// constraint.
func (s *Service) NotifyUserOnce(ctx context.Context, userID uuid.UUID, ntype, message string, window time.Duration) (bool, error) {
	if window <= 0 {
		window = s.cfg.DefaultDedupeWindow
	}

	lock := s.onceLock(userID, ntype)
	lock.Lock()
	defer lock.Unlock()

	now := s.clock()
	exists, err := s.store.ExistsSince(ctx, userID, ntype, now.Add(-window))
	if err != nil {
		return false, fmt.Errorf("notify: dedupe check: %w", err)
	}
	if exists {
		return false, nil
	}

	_, err = s.store.Insert(ctx, Input{
		UserID:    userID,
		Type:      ntype,
		Message:   message,
		DedupeKey: dedupeKey(ntype, now, window),
	})
	if err != nil {
		if errors.Is(err, httpx.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("notify: persist once: %w", err)
	}
	return true, nil
}

// ListForUser returns the user's notifications, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error) {
	return s.store.ListForUser(ctx, userID, limit)
}

// MarkRead flips a notification to read for its owner.
func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.store.MarkRead(ctx, id, userID)
}

func (s *Service) onceLock(userID uuid.UUID, ntype string) *sync.Mutex {
	key := userID.String() + "|" + ntype
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.onceLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.onceLocks[key] = lock
	}
	return lock
}

// dedupeKey buckets time by the window so the unique index on
// (user_id, dedupe_key) rejects a duplicate from a racing writer.
func dedupeKey(ntype string, now time.Time, window time.Duration) string {
	return fmt.Sprintf("%s:%d", ntype, now.Truncate(window).Unix())
}

// dispatchEmail sends through the relay when enabled. Failures are logged
// and swallowed: persistence already succeeded and must stand.
func (s *Service) dispatchEmail(ctx context.Context, recipients []string, ntype, message string) {
	if !s.cfg.EmailEnabled || s.mailer == nil {
		return
	}
	cleaned := recipients[:0]
	for _, addr := range recipients {
		if addr = strings.TrimSpace(addr); addr != "" {
			cleaned = append(cleaned, addr)
		}
	}
	if len(cleaned) == 0 {
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.EmailTimeout)
	defer cancel()

	if err := s.mailer.Send(sendCtx, cleaned, subjectFor(ntype), message); err != nil {
		s.logger.Error("notification email dispatch failed",
			slog.String("type", ntype),
			slog.Int("recipients", len(cleaned)),
			slog.Any("error", err),
		)
	}
}

func subjectFor(ntype string) string {
	return "[Fibra Core] " + strings.ReplaceAll(ntype, "_", " ")
}
