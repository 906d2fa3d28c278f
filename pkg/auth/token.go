package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalid = errors.New("invalid token")

// DefaultTTL matches the original prototype's bearer token lifetime.
const DefaultTTL = 7 * 24 * time.Hour

// Claims binds a bearer token to the ASN it proves ownership of.
type Claims struct {
	ASN uint32 `json:"asn"`
	jwt.RegisteredClaims
}

// Generate issues a token for asn, signed with secret, expiring after ttl
// (DefaultTTL if zero).
func Generate(asn uint32, secret string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	claims := Claims{
		ASN: asn,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse decodes a token's claims without checking which ASN it should
// belong to; callers that already know the expected ASN should use Verify.
func Parse(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalid
	}
	return claims, nil
}

// Verify checks that tokenStr is valid and was issued for asn.
func Verify(tokenStr string, asn uint32, secret string) error {
	claims, err := Parse(tokenStr, secret)
	if err != nil {
		return err
	}
	if claims.ASN != asn {
		return fmt.Errorf("%w: token asn %d does not match %d", ErrInvalid, claims.ASN, asn)
	}
	return nil
}
