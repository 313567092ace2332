package authz

import (
	"github.com/merchantry/bulwark/internal/application/ports"
	"github.com/merchantry/bulwark/internal/domain"
)

// Session is the per-request authentication snapshot built by the transport
// layer: the verified assertion plus server-side MFA state. A nil Session
// means an anonymous request.
type Session struct {
	AccountID   domain.AccountID
	Provider    domain.Provider
	MFAVerified bool
}

// Deriver maps a session and profile snapshot into a Principal. Derivation
// is pure and never fails: absent input degrades to the guest principal.
type Deriver struct{}

// NewDeriver builds a principal deriver.
func NewDeriver() *Deriver { return &Deriver{} }

// Derive builds a fresh Principal for one request. Role precedence, highest
// wins: admin marker > seller flag > customer. The MFA attribute comes from
// the session's server-side state, never from a client-asserted claim.
func (d *Deriver) Derive(sess *Session, profile *ports.Profile) domain.Principal {
	if sess == nil {
		return domain.Guest()
	}

	attrs := domain.Attributes{
		domain.AttrAccountID:   sess.AccountID.String(),
		domain.AttrMFAVerified: sess.MFAVerified,
	}
	role := domain.RoleCustomer
	if profile != nil {
		attrs[domain.AttrEmail] = profile.Email
		attrs[domain.AttrSeller] = profile.Seller
		attrs[domain.AttrVerified] = profile.Verified
		for k, v := range profile.Extra {
			if _, reserved := attrs[k]; !reserved {
				attrs[k] = v
			}
		}
		switch {
		case profile.Admin:
			role = domain.RoleAdmin
		case profile.Seller:
			role = domain.RoleSeller
		}
	}
	return domain.Principal{Role: role, Attrs: attrs}
}
