package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fibra-studio/fibra-core/internal/rbac"
)

// Task is one registered upkeep routine. Key derives the guard key from the
// invoking user so per-user tasks throttle independently while global tasks
// share a single key.
type Task struct {
	Name        string
	Key         func(userID uuid.UUID) string
	MinInterval time.Duration
	// Modules gates selection: the task applies when the caller's role can
	// view any of them. A gated-out task is never guard-checked.
	Modules []rbac.Module
	Run     func(ctx context.Context, userID uuid.UUID) error
}

// GlobalKey builds a key shared across all users.
func GlobalKey(name string) func(uuid.UUID) string {
	return func(uuid.UUID) string { return "maintenance:" + name }
}

// PerUserKey builds a key scoped to the invoking user.
func PerUserKey(name string) func(uuid.UUID) string {
	return func(userID uuid.UUID) string {
		return fmt.Sprintf("maintenance:%s:%s", name, userID)
	}
}

// Coordinator runs the registered tasks for a principal. It never fails
// itself: individual task failures are captured in their results.
type Coordinator struct {
	guards *GuardStore
	tasks  []Task
	logger *slog.Logger
	clock  func() time.Time
}

// NewCoordinator constructs a Coordinator over an injectable guard store so
// tests can reset and inspect throttle state.
func NewCoordinator(guards *GuardStore, logger *slog.Logger, tasks []Task) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		guards: guards,
		tasks:  tasks,
		logger: logger,
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// Run selects the tasks the role may trigger and executes them concurrently,
// returning one result per selected task. Result order follows registration
// order; execution order is unspecified.
func (c *Coordinator) Run(ctx context.Context, userID uuid.UUID, role rbac.Role) []TaskResult {
	selected := make([]Task, 0, len(c.tasks))
	for _, task := range c.tasks {
		if c.roleSelects(role, task) {
			selected = append(selected, task)
		}
	}

	results := make([]TaskResult, len(selected))
	g, ctx := errgroup.WithContext(ctx)
	for i, task := range selected {
		i, task := i, task
		g.Go(func() error {
			results[i] = c.runThrottled(ctx, task, userID)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Coordinator) roleSelects(role rbac.Role, task Task) bool {
	for _, module := range task.Modules {
		if rbac.CanAccess(role, module) {
			return true
		}
	}
	return false
}

// runThrottled wraps one task body with the guard protocol: atomic acquire,
// guaranteed release with lastRunAt stamped even on failure, panic contained.
func (c *Coordinator) runThrottled(ctx context.Context, task Task, userID uuid.UUID) TaskResult {
	key := task.Key(userID)
	if !c.guards.Acquire(key, task.MinInterval, c.clock()) {
		return TaskResult{Name: task.Name, Executed: false}
	}

	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				runErr = fmt.Errorf("panic: %v", r)
			}
		}()
		runErr = task.Run(ctx, userID)
	}()

	c.guards.Release(key, c.clock())

	result := TaskResult{Name: task.Name, Executed: true}
	if runErr != nil {
		result.Error = runErr.Error()
		c.logger.Warn("maintenance task failed",
			slog.String("task", task.Name),
			slog.String("key", key),
			slog.Any("error", runErr),
		)
	}
	return result
}
