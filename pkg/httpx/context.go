package httpx

import (
	"context"

	"github.com/aussiebroadwan/bakeboard/pkg/jwtx"
)

type ctxKey string

const ctxKeyClaims ctxKey = "claims"

func contextWithClaims(ctx context.Context, c jwtx.Claims) context.Context {
	return context.WithValue(ctx, ctxKeyClaims, c)
}

// ClaimsFromContext returns the verified token claims placed by AuthnMiddleware.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(ctxKeyClaims).(jwtx.Claims)
	return c, ok
}

// UserIDFromContext returns the authenticated subject or "".
func UserIDFromContext(ctx context.Context) string {
	c, _ := ClaimsFromContext(ctx)
	return c.Subject
}

func scopesFromCtx(ctx context.Context) []string {
	c, _ := ClaimsFromContext(ctx)
	return c.Scopes
}
