package authz

import "github.com/merchantry/bulwark/internal/domain"

// Registry is the immutable map from a protected-resource key to its policy
// requirement. A key absent from the registry carries no requirement and is
// always allowed: public resources are the explicit default.
type Registry struct {
	requirements map[string]domain.PolicyRequirement
}

// NewRegistry copies the given requirements into an immutable registry.
func NewRegistry(reqs map[string]domain.PolicyRequirement) *Registry {
	m := make(map[string]domain.PolicyRequirement, len(reqs))
	for k, v := range reqs {
		m[k] = v
	}
	return &Registry{requirements: m}
}

// Requirement looks up the policy for a resource key. ok is false for
// unregistered (public) keys.
func (r *Registry) Requirement(key string) (domain.PolicyRequirement, bool) {
	req, ok := r.requirements[key]
	return req, ok
}

// DefaultRegistry declares the storefront's protected resource keys.
// Catalog browsing, search, and other unlisted keys stay public.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]domain.PolicyRequirement{
		"cart:checkout": {
			RequireAuth:      true,
			AllOfPermissions: []string{"cart:manage"},
		},
		"orders:view": {
			RequireAuth:      true,
			AnyOfPermissions: []string{"orders:view"},
		},
		"account:security": {
			RequireAuth: true,
		},
		"account:sensitive": {
			RequireAuth: true,
		},
		"seller:dashboard": {
			RequireAuth:      true,
			AllowedRoles:     []domain.Role{domain.RoleSeller, domain.RoleAdmin},
			AllOfPermissions: []string{"seller:dashboard"},
			AttributePredicate: func(attrs domain.Attributes) bool {
				return attrs.Bool(domain.AttrVerified)
			},
		},
		"admin:accounts": {
			RequireAuth:      true,
			RequireMFA:       true,
			AllowedRoles:     []domain.Role{domain.RoleAdmin},
			AllOfPermissions: []string{"accounts:admin"},
		},
	})
}
