package domain

// Role is the coarse access tier of a principal.
type Role string

const (
	RoleGuest    Role = "guest"
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleCustomer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// Well-known attribute keys. Profile fields not listed here pass through the
// attribute bag untyped for use by attribute predicates.
const (
	AttrAccountID   = "account_id"
	AttrEmail       = "email"
	AttrSeller      = "seller"
	AttrVerified    = "verified"
	AttrMFAVerified = "mfa_verified"
)

// Attributes is the free-form attribute bag of a principal.
type Attributes map[string]any

// String returns the string attribute for key, or "".
func (a Attributes) String(key string) string {
	v, _ := a[key].(string)
	return v
}

// Bool returns the bool attribute for key, or false.
func (a Attributes) Bool(key string) bool {
	v, _ := a[key].(bool)
	return v
}

// Principal is a resolved role plus attribute bag used for one authorization
// decision. It is derived fresh per request and never persisted.
type Principal struct {
	Role  Role
	Attrs Attributes
}

// Guest returns the anonymous principal.
func Guest() Principal {
	return Principal{Role: RoleGuest, Attrs: Attributes{}}
}

// Authenticated reports whether the principal represents a signed-in account.
func (p Principal) Authenticated() bool { return p.Role != RoleGuest }
