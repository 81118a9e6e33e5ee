package store

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// cursorPosition is the keyset-pagination position encoded into an opaque
// cursor token: the tiebreak is (verified_at desc, email asc), matching the
// ordering used by Query.
type cursorPosition struct {
	VerifiedAt time.Time
	Email      string
}

type cursorClaims struct {
	jwt.RegisteredClaims
	VerifiedAt int64  `json:"vat"`
	Email      string `json:"eml"`
}

var (
	cursorKeyMu sync.RWMutex
	cursorKey   = []byte("mailnexy-default-cursor-signing-key-change-me")
)

// SetCursorSigningKey overrides the HMAC key used to sign/verify pagination
// cursors. Call once at startup from configuration.
func SetCursorSigningKey(key []byte) {
	cursorKeyMu.Lock()
	defer cursorKeyMu.Unlock()
	cursorKey = key
}

func currentCursorKey() []byte {
	cursorKeyMu.RLock()
	defer cursorKeyMu.RUnlock()
	return cursorKey
}

// encodeCursor signs a cursorPosition into an opaque, tamper-evident token.
// Using a JWT here (rather than a bare base64 blob) means a client cannot
// forge or alter a position. The token carries only the position
// (verified_at, email) and an expiry; the query filter is not bound into it,
// so a cursor is accepted under any filter.
func encodeCursor(pos cursorPosition) (string, error) {
	claims := cursorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		VerifiedAt: pos.VerifiedAt.UnixNano(),
		Email:      pos.Email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(currentCursorKey())
}

func decodeCursor(raw string) (cursorPosition, error) {
	var claims cursorClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return currentCursorKey(), nil
	})
	if err != nil || !token.Valid {
		return cursorPosition{}, errors.New("cursor token invalid or expired")
	}
	return cursorPosition{
		VerifiedAt: time.Unix(0, claims.VerifiedAt),
		Email:      claims.Email,
	}, nil
}
