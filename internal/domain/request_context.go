package domain

import (
	"context"
)

// Role staff role as asserted by the authentication gateway.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleDistrict Role = "district"
	RoleDivision Role = "division"
	RoleGN       Role = "gn"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDistrict, RoleDivision, RoleGN:
		return true
	}
	return false
}

// RequestContext identity of the staff member a request runs for. It is built
// once at the edge and passed down; nothing below reads session state.
type RequestContext struct {
	UserID     string `json:"user_id"`
	Role       Role   `json:"role"`
	OfficeCode string `json:"office_code"`
}

type requestContextKey struct{}

// WithRequestContext returns a copy of ctx carrying rc.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFrom extracts the RequestContext stored by WithRequestContext.
func RequestContextFrom(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(RequestContext)
	return rc, ok
}
