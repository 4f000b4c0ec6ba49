// Package session issues and verifies the signed cookie that carries a user's session.
//
// There is no server-side session table: the cookie value is an HS256 JWT
// holding {id: <userID>}, so any replica holding the same key can verify it.
package session

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/hugo-r/server-challenge/internal/errs"
	"github.com/hugo-r/server-challenge/internal/model"
)

const leeway = 30 * time.Second

// Claims is the payload of a session token.
type Claims struct {
	UserID int64 `json:"id"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session tokens.
type Codec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewCodec returns a codec signing with key. ttl <= 0 issues tokens without exp.
func NewCodec(key []byte, ttl time.Duration) *Codec {
	return &Codec{key: append([]byte(nil), key...), ttl: ttl, now: time.Now}
}

// Encode issues a token for userID.
func (c *Codec) Encode(userID int64) (model.SessionToken, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return model.SessionToken{}, fmt.Errorf("token id: %w", err)
	}

	now := c.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       jti.String(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	var exp time.Time
	if c.ttl > 0 {
		exp = now.Add(c.ttl)
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return model.SessionToken{}, fmt.Errorf("sign token: %w", err)
	}
	return model.SessionToken{Value: signed, ExpiresAt: exp}, nil
}

// Decode verifies token and returns the user id it carries.
// Every failure is reported as errs.ErrInvalidSession.
func (c *Codec) Decode(token string) (int64, error) {
	if token == "" {
		return 0, errs.ErrInvalidSession
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(leeway),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrInvalidSession, err)
	}
	if !parsed.Valid {
		return 0, errs.ErrInvalidSession
	}
	if claims.UserID <= 0 {
		return 0, fmt.Errorf("%w: no user id", errs.ErrInvalidSession)
	}
	return claims.UserID, nil
}
