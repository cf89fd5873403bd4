package maintenance

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fibra-studio/fibra-core/internal/platform/db"
)

// defaultServices is the studio's base offering, seeded idempotently.
var defaultServices = []struct {
	Name         string
	Description  string
	AveragePrice float64
	Currency     string
}{
	{"Branding", "Brand identity and visual system development.", 2500, "USD"},
	{"Web Design", "Design and prototyping of corporate or e-commerce sites.", 3200, "USD"},
	{"Social Media Management", "Planning, content and channel management.", 1200, "USD"},
	{"Audiovisual Production", "Video, multimedia pieces and audiovisual content.", 2800, "USD"},
	{"Performance Campaigns", "Paid media management focused on leads and conversions.", 1800, "USD"},
}

var defaultBanks = []struct {
	Name string
	Code string
}{
	{"BCP", "BCP"},
	{"Interbank", "IBK"},
	{"BBVA", "BBVA"},
	{"Scotiabank", "SCOTIA"},
	{"Banco de la Nación", "BN"},
}

// CatalogRepository seeds the default catalogs.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository constructs a repository.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// SeedDefaultServices inserts the base service catalog, skipping rows that
// already exist by name.
func (r *CatalogRepository) SeedDefaultServices(ctx context.Context) error {
	return db.WithRetry(ctx, func(ctx context.Context) error {
		for _, svc := range defaultServices {
			_, err := r.pool.Exec(ctx, `
				INSERT INTO service_catalog (name, description, average_price, currency)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (name) DO NOTHING`,
				svc.Name, svc.Description, svc.AveragePrice, svc.Currency)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// SeedDefaultBanks inserts the default bank list, skipping existing names.
func (r *CatalogRepository) SeedDefaultBanks(ctx context.Context) error {
	return db.WithRetry(ctx, func(ctx context.Context) error {
		for _, bank := range defaultBanks {
			_, err := r.pool.Exec(ctx, `
				INSERT INTO accounting_banks (name, code)
				VALUES ($1, $2)
				ON CONFLICT (name) DO NOTHING`,
				bank.Name, bank.Code)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// QualityRepository surfaces records whose required fields are missing.
type QualityRepository struct {
	pool *pgxpool.Pool
}

// NewQualityRepository constructs a repository.
func NewQualityRepository(pool *pgxpool.Pool) *QualityRepository {
	return &QualityRepository{pool: pool}
}

// IncompleteContacts returns display names of contacts missing phone,
// contact method or country.
func (r *QualityRepository) IncompleteContacts(ctx context.Context, limit int) ([]string, error) {
	var names []string
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, `
			SELECT trim(coalesce(first_name, '') || ' ' || coalesce(last_name, ''))
			FROM contacts
			WHERE coalesce(phone, '') = ''
			   OR coalesce(contact_method, '') = ''
			   OR coalesce(country, '') = ''
			ORDER BY created_at
			LIMIT $1`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		names = names[:0]
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			if name == "" {
				name = "Unnamed"
			}
			names = append(names, name)
		}
		return rows.Err()
	})
	return names, err
}

// IncompleteProjects returns names of projects missing an end date, a
// service type, or a positive budget.
func (r *QualityRepository) IncompleteProjects(ctx context.Context, limit int) ([]string, error) {
	var names []string
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, `
			SELECT name
			FROM projects
			WHERE end_date IS NULL
			   OR coalesce(service_type, '') = ''
			   OR budget <= 0
			ORDER BY created_at
			LIMIT $1`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		names = names[:0]
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			names = append(names, name)
		}
		return rows.Err()
	})
	return names, err
}

// BillingRepository derives invoices from project milestones and quote
// installments.
type BillingRepository struct {
	pool  *pgxpool.Pool
	clock func() time.Time
}

// NewBillingRepository constructs a repository.
func NewBillingRepository(pool *pgxpool.Pool) *BillingRepository {
	return &BillingRepository{
		pool:  pool,
		clock: func() time.Time { return time.Now().UTC() },
	}
}

type billingProject struct {
	ID            uuid.UUID
	ClientID      uuid.UUID
	Budget        float64
	StartDate     time.Time
	Status        string
	Installments  int
	Milestones    int
	Completed     int
	IssuedInvoice int
}

// SyncInvoicesFromMilestones issues the invoices each project should already
// have: one per completed milestone, or per accrued monthly installment when
// the quote defines an installment plan, whichever is higher. Idempotent:
// projects with enough issued invoices are skipped.
func (r *BillingRepository) SyncInvoicesFromMilestones(ctx context.Context) (int, error) {
	projects, err := r.listBillingProjects(ctx)
	if err != nil {
		return 0, err
	}

	now := r.clock()
	created := 0
	for _, project := range projects {
		missing, amount := invoicesOwed(project, now)
		for i := 0; i < missing; i++ {
			number, err := r.nextInvoiceNumber(ctx, now)
			if err != nil {
				return created, err
			}
			err = db.WithRetry(ctx, func(ctx context.Context) error {
				_, err := r.pool.Exec(ctx, `
					INSERT INTO invoices (invoice_number, client_id, project_id, amount, issue_date, due_date, status)
					VALUES ($1, $2, $3, $4, $5, $6, 'SENT')`,
					number, project.ClientID, project.ID, amount, now, now.AddDate(0, 0, 7))
				return err
			})
			if err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

func (r *BillingRepository) listBillingProjects(ctx context.Context) ([]billingProject, error) {
	var projects []billingProject
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, `
			SELECT p.id, p.client_id, p.budget, coalesce(p.start_date, now()), p.status,
			       coalesce(q.installments_count, 0),
			       count(m.id),
			       count(m.id) FILTER (WHERE m.status = 'COMPLETED'),
			       (SELECT count(*) FROM invoices i WHERE i.project_id = p.id AND i.status <> 'CANCELLED')
			FROM projects p
			LEFT JOIN quotes q ON q.project_id = p.id
			LEFT JOIN milestones m ON m.project_id = p.id
			GROUP BY p.id, q.installments_count
			ORDER BY p.created_at
			LIMIT 300`)
		if err != nil {
			return err
		}
		defer rows.Close()

		projects = projects[:0]
		for rows.Next() {
			var p billingProject
			if err := rows.Scan(&p.ID, &p.ClientID, &p.Budget, &p.StartDate, &p.Status,
				&p.Installments, &p.Milestones, &p.Completed, &p.IssuedInvoice); err != nil {
				return err
			}
			projects = append(projects, p)
		}
		return rows.Err()
	})
	return projects, err
}

// invoicesOwed computes how many invoices the project is missing and the
// per-invoice amount.
func invoicesOwed(p billingProject, now time.Time) (int, float64) {
	statusAllows := p.Status == "ACTIVE" || p.Status == "REVIEW" || p.Status == "COMPLETED"
	monthsElapsed := (now.Year()-p.StartDate.Year())*12 + int(now.Month()) - int(p.StartDate.Month())
	if monthsElapsed < 0 {
		monthsElapsed = 0
	}
	accrued := 0
	if statusAllows {
		accrued = min(p.Installments, monthsElapsed+1)
	}
	target := max(p.Completed, accrued)
	missing := max(target-p.IssuedInvoice, 0)
	if missing == 0 {
		return 0, 0
	}

	divisor := max(p.Milestones, p.Installments, 1)
	amount := math.Round(p.Budget/float64(divisor)*100) / 100
	return missing, amount
}

// nextInvoiceNumber picks an unused INV-<year>-<5 digits> number, falling
// back to a timestamp suffix when randomness keeps colliding.
func (r *BillingRepository) nextInvoiceNumber(ctx context.Context, now time.Time) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		candidate := fmt.Sprintf("INV-%d-%05d", now.Year(), 10000+rand.Intn(90000))
		var exists bool
		err := db.WithRetry(ctx, func(ctx context.Context) error {
			return r.pool.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM invoices WHERE invoice_number = $1)`, candidate).Scan(&exists)
		})
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return fmt.Sprintf("INV-%d-%d", now.Year(), now.UnixMilli()), nil
}
