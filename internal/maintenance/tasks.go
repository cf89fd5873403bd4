package maintenance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fibra-studio/fibra-core/internal/notify"
	"github.com/fibra-studio/fibra-core/internal/rbac"
)

// Notifier is the deduplicated notification primitive the quality scans use.
type Notifier interface {
	NotifyUserOnce(ctx context.Context, userID uuid.UUID, ntype, message string, window time.Duration) (bool, error)
}

// CatalogSeeder ensures the default service and bank catalogs exist.
type CatalogSeeder interface {
	SeedDefaultServices(ctx context.Context) error
	SeedDefaultBanks(ctx context.Context) error
}

// QualityStore surfaces records with missing required data.
type QualityStore interface {
	IncompleteContacts(ctx context.Context, limit int) ([]string, error)
	IncompleteProjects(ctx context.Context, limit int) ([]string, error)
}

// InvoiceSyncer issues invoices derived from project milestones.
type InvoiceSyncer interface {
	SyncInvoicesFromMilestones(ctx context.Context) (created int, err error)
}

// Deps bundles the collaborators the task catalog needs.
type Deps struct {
	Notifier Notifier
	Catalog  CatalogSeeder
	Quality  QualityStore
	Billing  InvoiceSyncer
}

const scanLimit = 25

// DefaultTasks builds the fixed task catalog. Per-user data-quality scans
// key on the invoking user; catalog seeding and invoice sync share global
// keys across all users.
func DefaultTasks(cfg Config, deps Deps) []Task {
	cfg = cfg.withDefaults()

	return []Task{
		{
			Name:        "seed_default_services",
			Key:         GlobalKey("catalog:services"),
			MinInterval: cfg.CatalogSeedInterval,
			Modules:     []rbac.Module{rbac.ModuleMarketing, rbac.ModuleProjects},
			Run: func(ctx context.Context, _ uuid.UUID) error {
				return deps.Catalog.SeedDefaultServices(ctx)
			},
		},
		{
			Name:        "seed_default_banks",
			Key:         GlobalKey("catalog:banks"),
			MinInterval: cfg.CatalogSeedInterval,
			Modules:     []rbac.Module{rbac.ModuleAccounting, rbac.ModuleSettings},
			Run: func(ctx context.Context, _ uuid.UUID) error {
				return deps.Catalog.SeedDefaultBanks(ctx)
			},
		},
		{
			Name:        "sales_data_quality",
			Key:         PerUserKey("quality:sales"),
			MinInterval: cfg.QualityScanInterval,
			Modules:     []rbac.Module{rbac.ModuleSales},
			Run: func(ctx context.Context, userID uuid.UUID) error {
				names, err := deps.Quality.IncompleteContacts(ctx, scanLimit)
				if err != nil {
					return err
				}
				if len(names) == 0 {
					return nil
				}
				message := qualityMessage("CRM", "contact(s)", names)
				_, err = deps.Notifier.NotifyUserOnce(ctx, userID, notify.TypeContactDataMissing, message, cfg.QualityDedupeWindow)
				return err
			},
		},
		{
			Name:        "project_data_quality",
			Key:         PerUserKey("quality:projects"),
			MinInterval: cfg.QualityScanInterval,
			Modules:     []rbac.Module{rbac.ModuleProjects},
			Run: func(ctx context.Context, userID uuid.UUID) error {
				names, err := deps.Quality.IncompleteProjects(ctx, scanLimit)
				if err != nil {
					return err
				}
				if len(names) == 0 {
					return nil
				}
				message := qualityMessage("Projects", "project(s)", names)
				_, err = deps.Notifier.NotifyUserOnce(ctx, userID, notify.TypeProjectDataMissing, message, cfg.QualityDedupeWindow)
				return err
			},
		},
		{
			Name:        "sync_invoices_from_milestones",
			Key:         GlobalKey("billing:invoice-sync"),
			MinInterval: cfg.InvoiceSyncInterval,
			Modules:     []rbac.Module{rbac.ModuleSales},
			Run: func(ctx context.Context, _ uuid.UUID) error {
				_, err := deps.Billing.SyncInvoicesFromMilestones(ctx)
				return err
			},
		},
	}
}

// SweepTasks returns the subset of the catalog safe to run without an
// invoking user: the globally keyed tasks. Used by the scheduled sweep,
// which shares guard state with interactive kickoffs.
func SweepTasks(cfg Config, deps Deps) []Task {
	var global []Task
	for _, task := range DefaultTasks(cfg, deps) {
		if task.Key(uuid.Nil) == task.Key(uuid.New()) {
			global = append(global, task)
		}
	}
	return global
}

// qualityMessage renders the nagging alert text with up to three example
// names so the recipient knows where to start.
func qualityMessage(area, noun string, names []string) string {
	examples := joinExamples(names, 3)
	msg := fmt.Sprintf("%s: %d %s with missing details", area, len(names), noun)
	if examples != "" {
		msg += " (e.g. " + examples + ")"
	}
	return msg + "."
}

func joinExamples(values []string, max int) string {
	seen := make(map[string]struct{}, len(values))
	unique := make([]string, 0, max)
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		unique = append(unique, v)
		if len(unique) == max {
			break
		}
	}
	return strings.Join(unique, ", ")
}
