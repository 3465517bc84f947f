package models

import "github.com/golang-jwt/jwt/v5"

// Role distinguishes the two principal kinds the API serves.
type Role string

const (
	RoleComptable Role = "comptable"
	RoleClient    Role = "client"
)

// Principal is the already-authenticated identity every service call receives.
// The engine trusts it and performs its own ownership checks on top.
type Principal struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// AccessClaims are the JWT claims issued by the identity collaborator.
type AccessClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}
