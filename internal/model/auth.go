package model

import "github.com/golang-jwt/jwt/v5"

// ClinicianClaims is the JWT payload for clinician (staff) tokens.
type ClinicianClaims struct {
	ClinicianID string `json:"clinicianId"`
	jwt.RegisteredClaims
}

// PatientClaims is the JWT payload for session-scoped patient tokens. A
// patient token is only valid for the session it was minted with.
type PatientClaims struct {
	SessionID string `json:"sessionId"`
	jwt.RegisteredClaims
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token       string `json:"token"`
	ClinicianID string `json:"clinicianId"`
}
