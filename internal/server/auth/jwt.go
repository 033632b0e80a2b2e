// Package auth issues and verifies the HMAC-signed tokens of the server:
// short-lived access tokens and long-lived ownership proofs.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Kind tells what a token may be used for.
type Kind string

const (
	KindAccess Kind = "access"
	// KindProof lets a later session show it once held an owner id, so
	// records under that id may be moved to the new one.
	KindProof Kind = "proof"
)

// Claims carries the owner id and the token kind next to the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	OwnerID string `json:"oid"`
	Kind    Kind   `json:"knd"`
}

func GenerateToken(ownerID string, kind Kind, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		OwnerID: ownerID,
		Kind:    kind,
	})

	return token.SignedString(secretKey)
}

func parse(tokenString string, kind Kind, secretKey []byte, opts ...jwt.ParserOption) (string, error) {
	claims := &Claims{}
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Kind != kind || claims.OwnerID == "" {
		return "", common.ErrInvalidToken
	}
	return claims.OwnerID, nil
}

// GetOwnerIDFromToken validates an access token and returns its owner id.
// An expired token yields common.ErrTokenExpired.
func GetOwnerIDFromToken(tokenString string, secretKey []byte) (string, error) {
	return parse(tokenString, KindAccess, secretKey)
}

// OwnerIDFromProof checks the signature of an ownership proof and returns
// the owner id it was issued to. Proofs do not expire.
func OwnerIDFromProof(tokenString string, secretKey []byte) (string, error) {
	return parse(tokenString, KindProof, secretKey, jwt.WithoutClaimsValidation())
}
