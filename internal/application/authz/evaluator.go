package authz

import "github.com/merchantry/bulwark/internal/domain"

// GrantTable maps a role to the permission strings it holds. The wildcard
// "*" grants everything.
type GrantTable map[domain.Role][]string

// DefaultGrantTable is the storefront's permission table. Injected into the
// evaluator at construction so there is a single source of truth and no
// hidden global state.
func DefaultGrantTable() GrantTable {
	return GrantTable{
		domain.RoleCustomer: {
			"cart:manage",
			"orders:view",
			"profile:manage",
			"reviews:write",
		},
		domain.RoleSeller: {
			"cart:manage",
			"orders:view",
			"orders:manage",
			"profile:manage",
			"reviews:write",
			"catalog:manage",
			"seller:dashboard",
		},
		domain.RoleAdmin: {domain.Wildcard},
	}
}

// Evaluator answers (principal, requirement) -> allow/deny. It is pure and
// deterministic: the compiled grant table is copied at construction and
// never mutated, so it may be shared across unbounded concurrent requests.
type Evaluator struct {
	grants map[domain.Role]map[string]struct{}
}

// NewEvaluator compiles the grant table into an immutable evaluator.
func NewEvaluator(table GrantTable) *Evaluator {
	grants := make(map[domain.Role]map[string]struct{}, len(table))
	for role, perms := range table {
		set := make(map[string]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		grants[role] = set
	}
	return &Evaluator{grants: grants}
}

// HasPermission evaluates the requirement's gates in order; the first
// failing gate denies. An empty requirement always allows.
func (e *Evaluator) HasPermission(p domain.Principal, req domain.PolicyRequirement) bool {
	if req.RequireAuth && !p.Authenticated() {
		return false
	}
	if req.RequireMFA && !p.Attrs.Bool(domain.AttrMFAVerified) {
		return false
	}
	if len(req.AllowedRoles) > 0 && !containsRole(req.AllowedRoles, p.Role) {
		return false
	}
	for _, perm := range req.AllOfPermissions {
		if !e.granted(p.Role, perm) {
			return false
		}
	}
	if len(req.AnyOfPermissions) > 0 {
		any := false
		for _, perm := range req.AnyOfPermissions {
			if e.granted(p.Role, perm) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	if req.AttributePredicate != nil && !req.AttributePredicate(p.Attrs) {
		return false
	}
	return true
}

func (e *Evaluator) granted(role domain.Role, perm string) bool {
	set, ok := e.grants[role]
	if !ok {
		return false
	}
	if _, ok := set[domain.Wildcard]; ok {
		return true
	}
	_, ok = set[perm]
	return ok
}

func containsRole(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
