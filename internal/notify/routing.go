package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/fibra-studio/fibra-core/internal/rbac"
)

// ModulesForType maps a notification type to the application areas whose
// unread badges it should light up. Unknown types roll up to the dashboard.
func ModulesForType(ntype string) []rbac.Module {
	switch ntype {
	case TypeNewLead, TypeQuoteUpdate, TypeContactDataMissing:
		return []rbac.Module{rbac.ModuleSales, rbac.ModuleDashboard}
	case TypeProjectUpdate, TypeProjectDataMissing:
		return []rbac.Module{rbac.ModuleProjects, rbac.ModuleDashboard}
	case TypeTaskDue:
		return []rbac.Module{rbac.ModuleTasks, rbac.ModuleProjects, rbac.ModuleTeam, rbac.ModuleDashboard}
	case TypeInvoiceUpdate, TypeInvoiceOverdue:
		return []rbac.Module{rbac.ModuleAccounting, rbac.ModuleInvoices, rbac.ModuleFinance, rbac.ModuleDashboard}
	case TypeFinanceUpdate:
		return []rbac.Module{rbac.ModuleFinance, rbac.ModuleAccounting, rbac.ModuleDashboard}
	case TypeMilestoneBillingDue:
		return []rbac.Module{rbac.ModuleProjects, rbac.ModuleAccounting, rbac.ModuleFinance, rbac.ModuleDashboard}
	case TypeReportReady:
		return []rbac.Module{rbac.ModuleReports, rbac.ModuleDashboard}
	default:
		return []rbac.Module{rbac.ModuleDashboard}
	}
}

// Summary aggregates unread counts for badge rendering.
type Summary struct {
	TotalUnread int            `json:"totalUnread"`
	ByModule    map[string]int `json:"byModule"`
}

// UnreadSummary counts the user's unread notifications per module. A single
// notification increments every module it routes to.
func (s *Service) UnreadSummary(ctx context.Context, userID uuid.UUID) (Summary, error) {
	byModule := make(map[string]int, rbac.NumModules)
	for _, module := range rbac.Modules() {
		byModule[module.String()] = 0
	}

	types, err := s.store.UnreadTypes(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	for _, t := range types {
		for _, module := range ModulesForType(t) {
			byModule[module.String()]++
		}
	}
	return Summary{TotalUnread: len(types), ByModule: byModule}, nil
}
