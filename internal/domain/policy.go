package domain

// Wildcard in a grant set matches every permission string.
const Wildcard = "*"

// AttributePredicate is an optional ABAC condition evaluated against the
// principal's attribute bag. It must be side-effect free.
type AttributePredicate func(Attributes) bool

// PolicyRequirement describes what a principal must satisfy to access a
// protected resource. The zero value requires nothing; unset fields never
// widen access because every gate defaults to pass-through when empty.
type PolicyRequirement struct {
	// RequireAuth denies guests.
	RequireAuth bool
	// RequireMFA denies principals without a verified second factor.
	RequireMFA bool
	// AllowedRoles, when non-empty, restricts access to the listed roles.
	AllowedRoles []Role
	// AllOfPermissions must all be granted to the principal's role.
	AllOfPermissions []string
	// AnyOfPermissions requires at least one granted permission.
	AnyOfPermissions []string
	// AttributePredicate, when set, must return true.
	AttributePredicate AttributePredicate
}
