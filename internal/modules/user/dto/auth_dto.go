package dto

import (
	"anoa.com/campusfix/internal/entity"
)

type RegisterInput struct {
	CollegeID    string  `json:"college_id" binding:"required,max=50"`
	FullName     string  `json:"full_name" binding:"required,max=100"`
	Email        string  `json:"email" binding:"required,email,max=100"`
	Password     string  `json:"password" binding:"required,min=8,max=72"`
	DepartmentID *string `json:"department_id"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int64           `json:"expires_in"`
	User        *entity.User    `json:"user"`
	Profile     *entity.Profile `json:"profile"`
	Roles       []string        `json:"roles"`
}

type RoleInput struct {
	Role string `json:"role" binding:"required,oneof=student teacher hod principal"`
}

type RolesResponse struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
}

// DepartmentAssignmentInput moves a user between departments. An empty
// department_id clears it; the field itself must be present.
type DepartmentAssignmentInput struct {
	DepartmentID *string `json:"department_id"`
}
