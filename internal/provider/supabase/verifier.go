package supabase

import (
	"context"

	"go-saas-backend/internal/domain"
	"go-saas-backend/pkg/auth"
)

// TokenVerifier resolves Supabase access tokens to identities using local
// signature verification (HS256 secret or the project's JWKS).
type TokenVerifier struct {
	verifier *auth.Verifier
}

func NewTokenVerifier(jwtSecret, supabaseURL string) *TokenVerifier {
	jwks := auth.NewProvider(supabaseURL + "/auth/v1/.well-known/jwks.json")
	return &TokenVerifier{verifier: auth.NewVerifier(jwtSecret, jwks)}
}

func (t *TokenVerifier) Verify(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := t.verifier.Verify(token)
	if err != nil {
		return domain.Identity{}, err
	}
	// Access tokens carry no creation timestamp; CreatedAt stays zero and the
	// reconciliation step fills it from the profile row when one exists.
	return domain.Identity{ID: claims.Subject, Email: claims.Email}, nil
}
