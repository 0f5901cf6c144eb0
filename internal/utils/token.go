package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims 访问令牌，Subject 为调用方的名称
type AuthClaims struct {
	jwt.RegisteredClaims
}

func GenerateToken(secret string, subject string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiration := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   subject,
		},
	})
	ss, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}

	return ss, expiration, nil
}

func ParseToken(secret string, tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("令牌缺少 subject")
	}

	return claims, nil
}
