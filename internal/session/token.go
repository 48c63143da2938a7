package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nostrid/nip05-registry/internal/common/clock"
	"github.com/nostrid/nip05-registry/internal/common/crypto"
)

// TokenSource issues and verifies the HMAC session credential. The jti
// claim carries the session id mirrored into the durable store for
// single-session detection.
type TokenSource struct {
	secret []byte
	idgen  crypto.IDGenerator
	clock  clock.Clock
}

func NewTokenSource(secret []byte, idgen crypto.IDGenerator, clk clock.Clock) *TokenSource {
	return &TokenSource{
		secret: secret,
		idgen:  idgen,
		clock:  clk,
	}
}

func (t *TokenSource) Issue(publicKey string, expiry time.Time) (token, jti string, err error) {
	jti, err = t.idgen.NewID()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate session id: %w", err)
	}
	token, err = t.IssueWithID(publicKey, jti, expiry)
	return token, jti, err
}

// IssueWithID re-signs a credential keeping the session id stable, which
// is how sliding refresh extends expiry without invalidating the durable
// token mirror.
func (t *TokenSource) IssueWithID(publicKey, jti string, expiry time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   publicKey,
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(t.clock.Now()),
		ExpiresAt: jwt.NewNumericDate(expiry),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

func (t *TokenSource) Verify(token string) (publicKey, jti string, err error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
			}
			return t.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.clock.Now),
	)
	if err != nil {
		return "", "", err
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return "", "", fmt.Errorf("unexpected claims type")
	}
	return claims.Subject, claims.ID, nil
}
