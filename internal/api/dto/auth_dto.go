package dto

import (
	"time"

	"github.com/spec-kit/hubops/internal/domain"
)

// LoginRequest payload for the role-based demo login.
type LoginRequest struct {
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
}

// LoginResponse carries the issued token and resolved principal.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse is the directory read model.
type UserResponse struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	Role         domain.Role `json:"role"`
	DepartmentID *string     `json:"department_id"`
}

// DepartmentResponse is the directory read model for departments.
type DepartmentResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
