package authz

import (
	"context"
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc"
	jwtv4 "github.com/golang-jwt/jwt/v4"
)

// JWTValidator admits bearer tokens signed by keys published at a JWKS
// endpoint. Used when no shared secret is configured.
//
// keyfunc speaks jwt/v4, so this path parses with v4 while the HS256 path
// stays on v5. The claim checks downstream of the parse are shared.
type JWTValidator struct {
	jwks   *keyfunc.JWKS
	issuer string
}

func NewJWTValidator(ctx context.Context, jwksURL, issuer string) (*JWTValidator, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   15 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, err
	}
	return &JWTValidator{jwks: jwks, issuer: issuer}, nil
}

func (j *JWTValidator) Middleware(next http.Handler) http.Handler {
	return admit("jwks", j.issuer, j.verify)(next)
}

func (j *JWTValidator) verify(token string) (map[string]any, error) {
	tok, err := jwtv4.Parse(token, j.jwks.Keyfunc)
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, jwtv4.ErrTokenUnverifiable
	}
	claims, ok := tok.Claims.(jwtv4.MapClaims)
	if !ok {
		return nil, jwtv4.ErrTokenInvalidClaims
	}
	return claims, nil
}
