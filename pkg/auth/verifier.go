package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of Supabase access-token claims this service relies on.
type Claims struct {
	Subject string
	Email   string
}

// Verifier validates Supabase-issued access tokens locally. Projects using the
// legacy shared secret issue HS256 tokens; newer projects sign with RS256 and
// publish their keys via JWKS. Both are accepted.
type Verifier struct {
	secret string
	jwks   *Provider
}

func NewVerifier(secret string, jwks *Provider) *Verifier {
	return &Verifier{secret: secret, jwks: jwks}
}

// Verify parses and validates the token and returns its subject claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
			// HS256 - Use Secret
			if v.secret == "" {
				return nil, fmt.Errorf("HS256 token received but SUPABASE_JWT_SECRET is not configured")
			}
			return []byte(v.secret), nil
		}

		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			// RS256 - Use JWKS
			return v.jwks.KeyFunc(token)
		}

		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	email, _ := claims["email"].(string)

	return &Claims{Subject: sub, Email: email}, nil
}
