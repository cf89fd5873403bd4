package rbac

// Shorthands keep the matrix rows readable. The zero Permission (deny all) is
// spelled out as none so every cell is visibly filled.
var (
	none = Permission{}
	view = Permission{CanView: true}
	vc   = Permission{CanView: true, CanCreate: true}
	vce  = Permission{CanView: true, CanCreate: true, CanEdit: true}
	full = Permission{CanView: true, CanCreate: true, CanEdit: true, CanDelete: true}
)

// matrix is indexed by role and module ordinals. Using a fixed-size array ties
// the table to the enum declarations: adding a role or module without filling
// its row or column leaves deny-all cells rather than a runtime lookup miss.
var matrix = [NumRoles][NumModules]Permission{
	RoleAdmin: {
		ModuleDashboard:  full,
		ModuleSales:      full,
		ModuleProjects:   full,
		ModuleTasks:      full,
		ModuleTeam:       full,
		ModuleSuppliers:  full,
		ModuleAccounting: full,
		ModuleInvoices:   full,
		ModuleFinance:    full,
		ModuleMarketing:  full,
		ModuleReports:    full,
		ModuleChatbot:    full,
		ModuleSettings:   full,
	},
	RoleManagement: {
		ModuleDashboard:  full,
		ModuleSales:      full,
		ModuleProjects:   full,
		ModuleTasks:      full,
		ModuleTeam:       full,
		ModuleSuppliers:  full,
		ModuleAccounting: full,
		ModuleInvoices:   full,
		ModuleFinance:    full,
		ModuleMarketing:  full,
		ModuleReports:    full,
		ModuleChatbot:    full,
		ModuleSettings:   full,
	},
	RoleAccounting: {
		ModuleDashboard:  view,
		ModuleSales:      none,
		ModuleProjects:   none,
		ModuleTasks:      vce,
		ModuleTeam:       view,
		ModuleSuppliers:  vce,
		ModuleAccounting: vce,
		ModuleInvoices:   vce,
		ModuleFinance:    view,
		ModuleMarketing:  none,
		ModuleReports:    vc,
		ModuleChatbot:    vc,
		ModuleSettings:   none,
	},
	RoleFinance: {
		ModuleDashboard:  view,
		ModuleSales:      none,
		ModuleProjects:   view,
		ModuleTasks:      vce,
		ModuleTeam:       view,
		ModuleSuppliers:  view,
		ModuleAccounting: view,
		ModuleInvoices:   view,
		ModuleFinance:    vce,
		ModuleMarketing:  none,
		ModuleReports:    vc,
		ModuleChatbot:    vc,
		ModuleSettings:   none,
	},
	RoleProjects: {
		ModuleDashboard:  view,
		ModuleSales:      view,
		ModuleProjects:   vce,
		ModuleTasks:      vce,
		ModuleTeam:       view,
		ModuleSuppliers:  none,
		ModuleAccounting: none,
		ModuleInvoices:   none,
		ModuleFinance:    none,
		ModuleMarketing:  none,
		ModuleReports:    view,
		ModuleChatbot:    vc,
		ModuleSettings:   none,
	},
	RoleMarketing: {
		ModuleDashboard:  view,
		ModuleSales:      view,
		ModuleProjects:   view,
		ModuleTasks:      vce,
		ModuleTeam:       view,
		ModuleSuppliers:  none,
		ModuleAccounting: none,
		ModuleInvoices:   none,
		ModuleFinance:    none,
		ModuleMarketing:  vce,
		ModuleReports:    view,
		ModuleChatbot:    vc,
		ModuleSettings:   none,
	},
	RoleSales: {
		ModuleDashboard:  view,
		ModuleSales:      vce,
		ModuleProjects:   view,
		ModuleTasks:      vce,
		ModuleTeam:       view,
		ModuleSuppliers:  none,
		ModuleAccounting: none,
		ModuleInvoices:   view,
		ModuleFinance:    none,
		ModuleMarketing:  view,
		ModuleReports:    view,
		ModuleChatbot:    vc,
		ModuleSettings:   none,
	},
}

// GetPermission returns the permission tuple for a (role, module) pair.
// Out-of-range values resolve to the deny-all zero value.
func GetPermission(role Role, module Module) Permission {
	if !role.Valid() || !module.Valid() {
		return Permission{}
	}
	return matrix[role][module]
}

// CanAccess reports whether the role may view the module.
func CanAccess(role Role, module Module) bool {
	return GetPermission(role, module).CanView
}

// AccessibleModules returns the modules the role may view, in declaration
// order. The order is stable so navigation payloads stay deterministic.
func AccessibleModules(role Role) []Module {
	if !role.Valid() {
		return nil
	}
	modules := make([]Module, 0, NumModules)
	for _, m := range Modules() {
		if matrix[role][m].CanView {
			modules = append(modules, m)
		}
	}
	return modules
}
