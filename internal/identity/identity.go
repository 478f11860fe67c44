// Package identity turns bearer tokens into the authenticated principal the
// game core consumes.
package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrDomainNotAllowed = errors.New("email domain not allowed")
)

type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL"`
}

type claims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secretKey     []byte
	allowedDomain string
}

func NewVerifier(secretKey, allowedDomain string) *Verifier {
	return &Verifier{
		secretKey:     []byte(secretKey),
		allowedDomain: strings.ToLower(strings.TrimPrefix(allowedDomain, "@")),
	}
}

// Issue signs a token for id. Used by tooling and tests; production tokens
// come from the identity provider.
func (v *Verifier) Issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name:    id.DisplayName,
		Email:   id.Email,
		Picture: id.PhotoURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(v.secretKey)
}

func (v *Verifier) Verify(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secretKey, nil
	})
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	parsed, ok := token.Claims.(*claims)
	if !ok || !token.Valid || parsed.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	id := Identity{
		UID:         parsed.Subject,
		DisplayName: parsed.Name,
		Email:       parsed.Email,
		PhotoURL:    parsed.Picture,
	}
	if !v.DomainAllowed(id.Email) {
		return Identity{}, ErrDomainNotAllowed
	}
	return id, nil
}

// DomainAllowed enforces the optional email suffix restriction.
func (v *Verifier) DomainAllowed(email string) bool {
	if v.allowedDomain == "" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(email)), "@"+v.allowedDomain)
}
