package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// IssueTokenRequest describes a token minted for a known identity.
type IssueTokenRequest struct {
	UserID   string   `json:"user_id" validate:"required"`
	Role     UserRole `json:"role" validate:"required,oneof=ADMIN ACCOUNTS_ADMIN TEACHER STUDENT"`
	Email    string   `json:"email" validate:"omitempty,email"`
	FullName string   `json:"full_name"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
