// Package notify persists user notifications, fans them out by role, and
// relays them to the email channel when enabled.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// Well-known notification types. The type field stays a free-form string on
// the wire; these constants cover every producer inside the platform.
const (
	TypeNewLead             = "new_lead"
	TypeQuoteUpdate         = "quote_update"
	TypeContactDataMissing  = "contact_data_missing"
	TypeProjectUpdate       = "project_update"
	TypeProjectDataMissing  = "project_data_missing"
	TypeTaskDue             = "task_due"
	TypeInvoiceUpdate       = "invoice_update"
	TypeInvoiceOverdue      = "invoice_overdue"
	TypeFinanceUpdate       = "finance_update"
	TypeMilestoneBillingDue = "milestone_billing_due"
	TypeReportReady         = "report_ready"
)

// Notification is a persisted alert owned by exactly one user. Content is
// immutable after creation; only the read flag transitions, and only to true.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Input describes a notification to persist. DedupeKey, when set, rides the
// store's uniqueness constraint as a defense against concurrent once-writes.
type Input struct {
	UserID    uuid.UUID
	Type      string
	Message   string
	DedupeKey string
}
