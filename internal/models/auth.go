package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OperatorRole is the only role issued to back-office operators.
const OperatorRole = "admin"

// TokenRequest holds operator credentials.
type TokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse returns an issued access token.
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresIn   int64     `json:"expiresIn"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// OperatorClaims are the JWT claims carried by operator tokens.
type OperatorClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}
