package server

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	goerrors "github.com/goliatone/go-errors"

	"github.com/lexfirm/google-services/core"
)

const identityContextKey = "google.identity"

// IdentityResolver turns an opaque bearer token into the authenticated CRM
// user. Deployments plug in their session backend here.
type IdentityResolver interface {
	Resolve(ctx context.Context, bearerToken string) (core.Identity, error)
}

// IdentityResolverFunc adapts a plain function to IdentityResolver.
type IdentityResolverFunc func(ctx context.Context, bearerToken string) (core.Identity, error)

func (f IdentityResolverFunc) Resolve(ctx context.Context, bearerToken string) (core.Identity, error) {
	return f(ctx, bearerToken)
}

// StaticTokenResolver resolves identities from a fixed token table. It backs
// single-tenant installs and the test harness.
type StaticTokenResolver struct {
	identities map[string]core.Identity
}

func NewStaticTokenResolver(identities map[string]core.Identity) *StaticTokenResolver {
	table := make(map[string]core.Identity, len(identities))
	for token, id := range identities {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		table[token] = id
	}
	return &StaticTokenResolver{identities: table}
}

func (r *StaticTokenResolver) Resolve(_ context.Context, bearerToken string) (core.Identity, error) {
	if r != nil {
		if id, ok := r.identities[bearerToken]; ok {
			return id, nil
		}
	}
	return core.Identity{}, goerrors.New("unknown bearer token", goerrors.CategoryAuth).
		WithCode(401).
		WithTextCode(core.ErrorCodeForbidden)
}

func identityFromContext(c *gin.Context) (core.Identity, bool) {
	value, ok := c.Get(identityContextKey)
	if !ok {
		return core.Identity{}, false
	}
	id, ok := value.(core.Identity)
	return id, ok
}
