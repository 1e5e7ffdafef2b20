package dto

import (
	"anoa.com/campusfix/internal/entity"
)

// UpdateProfileInput carries the mutable profile fields. A nil field is left
// unchanged; an empty department_id clears the department.
type UpdateProfileInput struct {
	FullName     *string `json:"full_name" binding:"omitempty,min=1,max=100"`
	DepartmentID *string `json:"department_id"`
}

// CurrentProfileResponse is returned for the signed-in user's own profile.
type CurrentProfileResponse struct {
	Profile *entity.Profile `json:"profile"`
	Roles   []string        `json:"roles"`
}

// PublicProfileResponse is what other authenticated users may read.
type PublicProfileResponse struct {
	ID         string             `json:"id"`
	CollegeID  string             `json:"college_id"`
	FullName   string             `json:"full_name"`
	Department *entity.Department `json:"department,omitempty"`
}
