package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a volunteer.
type LoginRequest struct {
	Phone string `json:"phone" validate:"required"`
	PIN   string `json:"pin" validate:"required,numeric,min=4,max=6"`
}

// LoginResponse returns the issued token and volunteer info.
type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	ExpiresIn   int64         `json:"expires_in"`
	IssuedAt    time.Time     `json:"issued_at"`
	User        VolunteerInfo `json:"user"`
}

// VolunteerInfo is the public identity embedded in auth responses.
type VolunteerInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Role  Role   `json:"role"`
	Room  *Room  `json:"room,omitempty"`
}

// ChangePINRequest updates the caller's PIN.
type ChangePINRequest struct {
	CurrentPIN string `json:"current_pin" validate:"required"`
	NewPIN     string `json:"new_pin" validate:"required,numeric,min=4,max=6"`
}

// JWTClaims are the custom claims carried by access tokens.
type JWTClaims struct {
	VolunteerID string `json:"volunteer_id"`
	Name        string `json:"name"`
	Role        Role   `json:"role"`
	jwt.RegisteredClaims
}
