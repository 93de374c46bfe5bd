package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid scanner token")

// ScannerClaims is the signed payload a scanner device holds after a PIN
// login. The token pins the device to one event.
type ScannerClaims struct {
	EventID   string `json:"event_id"`
	StaffName string `json:"staff_name,omitempty"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

func (t *TokenIssuer) Issue(eventID, staffName string) (string, error) {
	now := time.Now()
	claims := ScannerClaims{
		EventID:   eventID,
		StaffName: staffName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "scanner",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *TokenIssuer) Verify(tokenString string) (*ScannerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ScannerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*ScannerClaims)
	if !ok || claims.EventID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractTokenFromRequest pulls a bearer token from the Authorization
// header. An absent header is not an error for scan requests, which may
// authenticate with a PIN instead.
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}

	return parts[1], nil
}
