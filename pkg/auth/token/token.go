// Package token issues and verifies the signed identity claims the whole
// system authenticates with: HS256 JWTs carrying user id, username, role
// and an expiry.
package token

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"shop/pkg/auth/domain/model"
	"shop/pkg/common/authmw"
)

const DefaultTTL = 24 * time.Hour

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *Manager) Issue(user *model.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
		"exp":      m.now().Add(m.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Verify implements authmw.Verifier. A bad signature, a malformed token and
// an expired one are all equally invalid.
func (m *Manager) Verify(_ context.Context, tokenString string) (*authmw.Claims, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, authmw.ErrInvalidToken
	}

	payload, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, authmw.ErrInvalidToken
	}
	userID, ok := payload["user_id"].(float64)
	if !ok {
		return nil, authmw.ErrInvalidToken
	}
	username, _ := payload["username"].(string)
	role, _ := payload["role"].(string)

	return &authmw.Claims{
		UserID:   int64(userID),
		Username: username,
		Role:     role,
	}, nil
}
