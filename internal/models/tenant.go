package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Tenant identifies one school scope together with the bearer token used
// against the upstream registrar. It is resolved per request and never
// stored by the aggregation core.
type Tenant struct {
	ID            string
	UpstreamToken string
}

// School is a row in the tenant directory.
type School struct {
	ID            string     `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	UpstreamToken string     `db:"upstream_token" json:"-"`
	Active        bool       `db:"active" json:"active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// StaffUser is an authenticated member of a school's staff.
type StaffUser struct {
	ID           string     `db:"id" json:"id"`
	SchoolID     string     `db:"school_id" json:"school_id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         string     `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// StaffClaims are the JWT claims issued to staff users. SchoolID scopes
// every downstream query to the caller's tenant.
type StaffClaims struct {
	UserID   string `json:"uid"`
	SchoolID string `json:"school_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}
