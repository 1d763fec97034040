package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// LearnerClaims represents the access token claims issued by the account service
type LearnerClaims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email,omitempty"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}
