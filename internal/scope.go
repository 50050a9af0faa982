package internal

import "context"

// Scope is the row-level access predicate every store call receives. An
// empty OwnerID means the single-tenant deployment: no owner filter at all.
type Scope struct {
	OwnerID string
}

func (s Scope) IsTenant() bool {
	return s.OwnerID != ""
}

// ScopeFor turns the authenticated caller into a Scope. Outside multi-tenant
// mode the caller's identity does not restrict record visibility.
func ScopeFor(ctx context.Context, multiTenant bool) Scope {
	if !multiTenant {
		return Scope{}
	}
	return Scope{OwnerID: UserIDFromContext(ctx)}
}
