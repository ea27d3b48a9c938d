package rest

import (
	"context"
)

type ctxKeyPrincipal struct{}

// Principal is the verified identity attached to a request after credential
// validation. It lives for one request only and is never persisted.
type Principal struct {
	Email string
	Name  string
}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal{}, p)
}

func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal{}).(Principal)
	if !ok || p.Email == "" {
		return Principal{}, false
	}
	return p, true
}
