package authz

import (
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

// HMACValidator admits bearer tokens signed with the shared HS256 secret.
// Chosen at boot when ADMIN_SHARED_HS256_SECRET is set.
type HMACValidator struct {
	secret []byte
	issuer string
}

func NewHMACValidator(secret, issuer string) *HMACValidator {
	return &HMACValidator{secret: []byte(secret), issuer: issuer}
}

func (h *HMACValidator) Middleware(next http.Handler) http.Handler {
	return admit("hmac", h.issuer, h.verify)(next)
}

// verify pins the algorithm family to HS* before releasing the secret.
func (h *HMACValidator) verify(token string) (map[string]any, error) {
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %T", t.Method)
		}
		return h.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
