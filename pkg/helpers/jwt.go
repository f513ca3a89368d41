package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager issues and verifies the signed bearer tokens that assert an
// account id. Signing secret, algorithm, and lifetime come from deployment
// configuration.
type TokenManager struct {
	secret []byte
	method jwt.SigningMethod
	expiry time.Duration
}

var defaultTokens *TokenManager

// NewTokenManager builds a TokenManager. Supported algorithms are HS256,
// HS384 and HS512; anything else falls back to HS256.
func NewTokenManager(secret, algorithm string, expiryMinutes int) *TokenManager {
	m := &TokenManager{
		secret: []byte(secret),
		method: signingMethod(algorithm),
		expiry: time.Duration(expiryMinutes) * time.Minute,
	}
	defaultTokens = m
	return m
}

// DefaultTokens returns the last constructed TokenManager (used for
// auto-wiring routes).
func DefaultTokens() *TokenManager { return defaultTokens }

func signingMethod(algorithm string) jwt.SigningMethod {
	switch algorithm {
	case "HS384":
		return jwt.SigningMethodHS384
	case "HS512":
		return jwt.SigningMethodHS512
	default:
		return jwt.SigningMethodHS256
	}
}

// Claims carried by an access token: account id as subject plus the
// identity fields the clients display without a profile round trip.
type Claims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// Issue signs a token for the account with expiry = now + configured
// lifetime (UTC).
func (m *TokenManager) Issue(accountID uuid.UUID, username, email string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(m.expiry)
	claims := &Claims{
		Username: username,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(m.method, claims)
	s, err := t.SignedString(m.secret)
	return s, exp, err
}

// Parse verifies signature and expiry and returns the embedded claims.
func (m *TokenManager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// DecodeSubject returns the account id carried by the token, or ok=false on
// any verification failure (expired, tampered, malformed subject). Callers
// treat a failed decode as unauthenticated, never as a crash.
func (m *TokenManager) DecodeSubject(tokenStr string) (uuid.UUID, bool) {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
