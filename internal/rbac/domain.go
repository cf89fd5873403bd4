// Package rbac holds the static role/module access matrix consulted by every
// privileged operation in Fibra Core.
package rbac

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role is the identity class assigned to a user. A user carries exactly one
// role at a time; it changes only through an explicit user update.
type Role int

const (
	RoleAdmin Role = iota
	RoleManagement
	RoleAccounting
	RoleFinance
	RoleProjects
	RoleMarketing
	RoleSales

	NumRoles = int(RoleSales) + 1
)

var roleNames = [NumRoles]string{
	"ADMIN",
	"MANAGEMENT",
	"ACCOUNTING",
	"FINANCE",
	"PROJECTS",
	"MARKETING",
	"SALES",
}

// String returns the storage representation of the role.
func (r Role) String() string {
	if !r.Valid() {
		return "UNKNOWN"
	}
	return roleNames[r]
}

// Valid reports whether the role is one of the declared constants.
func (r Role) Valid() bool {
	return r >= 0 && int(r) < NumRoles
}

// ParseRole resolves a stored role name. Unknown names are an error; callers
// must treat them as unauthenticated rather than guessing a role.
func ParseRole(name string) (Role, error) {
	needle := strings.ToUpper(strings.TrimSpace(name))
	for i, candidate := range roleNames {
		if candidate == needle {
			return Role(i), nil
		}
	}
	return 0, fmt.Errorf("rbac: unknown role %q", name)
}

// Roles returns every declared role in declaration order.
func Roles() []Role {
	out := make([]Role, NumRoles)
	for i := range out {
		out[i] = Role(i)
	}
	return out
}

// Module is a named application area gated by the access matrix.
type Module int

const (
	ModuleDashboard Module = iota
	ModuleSales
	ModuleProjects
	ModuleTasks
	ModuleTeam
	ModuleSuppliers
	ModuleAccounting
	ModuleInvoices
	ModuleFinance
	ModuleMarketing
	ModuleReports
	ModuleChatbot
	ModuleSettings

	NumModules = int(ModuleSettings) + 1
)

var moduleNames = [NumModules]string{
	"dashboard",
	"sales",
	"projects",
	"tasks",
	"team",
	"suppliers",
	"accounting",
	"invoices",
	"finance",
	"marketing",
	"reports",
	"chatbot",
	"settings",
}

// String returns the wire name of the module.
func (m Module) String() string {
	if !m.Valid() {
		return "unknown"
	}
	return moduleNames[m]
}

// Valid reports whether the module is one of the declared constants.
func (m Module) Valid() bool {
	return m >= 0 && int(m) < NumModules
}

// ParseModule resolves a module by its wire name.
func ParseModule(name string) (Module, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for i, candidate := range moduleNames {
		if candidate == needle {
			return Module(i), nil
		}
	}
	return 0, fmt.Errorf("rbac: unknown module %q", name)
}

// Modules returns every declared module in declaration order.
func Modules() []Module {
	out := make([]Module, NumModules)
	for i := range out {
		out[i] = Module(i)
	}
	return out
}

var titleCaser = cases.Title(language.English)

// Label returns the human-facing name of the module for UI payloads.
func (m Module) Label() string {
	return titleCaser.String(m.String())
}

// Permission is the per-(role, module) capability tuple. The zero value denies
// everything, which is what undeclared pairs must resolve to.
type Permission struct {
	CanView   bool `json:"canView"`
	CanCreate bool `json:"canCreate"`
	CanEdit   bool `json:"canEdit"`
	CanDelete bool `json:"canDelete"`
}
