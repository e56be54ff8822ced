package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type memberClaims struct {
	MemberID string `json:"member_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenSubject is the identity carried by an access token.
type TokenSubject struct {
	MemberID uuid.UUID
	Role     string
}

// GenerateToken creates a signed HS256 JWT for the member.
func GenerateToken(secret string, memberID uuid.UUID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &memberClaims{
		MemberID: memberID.String(),
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   memberID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates the token and returns the embedded subject.
func ParseToken(secret, tokenString string) (TokenSubject, error) {
	token, err := jwt.ParseWithClaims(tokenString, &memberClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return TokenSubject{}, err
	}

	claims, ok := token.Claims.(*memberClaims)
	if !ok || !token.Valid {
		return TokenSubject{}, jwt.ErrTokenInvalidClaims
	}

	id, err := uuid.Parse(claims.MemberID)
	if err != nil {
		return TokenSubject{}, err
	}
	return TokenSubject{MemberID: id, Role: claims.Role}, nil
}
