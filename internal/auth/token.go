package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/company-authz/internal"
	"github.com/golang-jwt/jwt/v5"
)

// TokenGenerator issues and verifies signed tokens.
type TokenGenerator interface {
	GenerateAccessToken(userID, email string) (string, error)
	GenerateRefreshToken(userID, email string) (string, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
	AccessTTL() time.Duration
}

// NewJWTTokenGenerator creates a new JWT token generator
func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
		now:                time.Now,
	}
}

func (j *JWTTokenGenerator) AccessTTL() time.Duration {
	return j.AccessTokenTTL
}

// GenerateAccessToken creates a new access token
func (j *JWTTokenGenerator) GenerateAccessToken(userID, email string) (string, error) {
	return j.sign(userID, email, TokenTypeAccess, j.AccessTokenTTL, j.AccessTokenSecret)
}

// GenerateRefreshToken creates a new refresh token
func (j *JWTTokenGenerator) GenerateRefreshToken(userID, email string) (string, error) {
	return j.sign(userID, email, TokenTypeRefresh, j.RefreshTokenTTL, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) ValidateAccessToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, TokenTypeAccess, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, TokenTypeRefresh, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) sign(userID, email, tokenType string, ttl time.Duration, secret []byte) (string, error) {
	now := j.now()
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (j *JWTTokenGenerator) validate(tokenString, tokenType string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(j.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType {
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}
