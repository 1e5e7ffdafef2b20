package profile

import (
	"context"
	"fmt"
	"strings"

	"anoa.com/campusfix/internal/entity"
	departmentRepo "anoa.com/campusfix/internal/modules/department/repository"
	profileDto "anoa.com/campusfix/internal/modules/profile/dto"
	userRepo "anoa.com/campusfix/internal/modules/user/repository"
	"anoa.com/campusfix/internal/policy"
	"anoa.com/campusfix/pkg/apperror"
	"anoa.com/campusfix/pkg/validator"
	"github.com/google/uuid"
)

type ProfileService interface {
	GetCurrentProfile(ctx context.Context, userID uuid.UUID) (*profileDto.CurrentProfileResponse, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*profileDto.PublicProfileResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput) (*profileDto.CurrentProfileResponse, error)
}

type profileService struct {
	repo           userRepo.UserRepository
	departmentRepo departmentRepo.DepartmentRepository
}

func NewProfileService(repo userRepo.UserRepository, departmentRepo departmentRepo.DepartmentRepository) ProfileService {
	return &profileService{
		repo:           repo,
		departmentRepo: departmentRepo,
	}
}

func (s *profileService) GetCurrentProfile(ctx context.Context, userID uuid.UUID) (*profileDto.CurrentProfileResponse, error) {
	profile, err := s.repo.FindProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	roles, err := s.repo.GetRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []string{}
	}

	return &profileDto.CurrentProfileResponse{
		Profile: profile,
		Roles:   roles,
	}, nil
}

func (s *profileService) GetProfile(ctx context.Context, userID uuid.UUID) (*profileDto.PublicProfileResponse, error) {
	profile, err := s.repo.FindProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &profileDto.PublicProfileResponse{
		ID:         profile.UserID.String(),
		CollegeID:  profile.CollegeID,
		FullName:   profile.FullName,
		Department: profile.Department,
	}, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput) (*profileDto.CurrentProfileResponse, error) {
	if input.FullName != nil {
		trimmed := strings.TrimSpace(*input.FullName)
		input.FullName = &trimmed
	}
	if err := validator.Struct(input); err != nil {
		return nil, err
	}

	profile, err := s.repo.FindProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.FullName != nil {
		if *input.FullName == "" {
			return nil, apperror.Validation("full_name cannot be empty")
		}
		profile.FullName = *input.FullName
	}

	if input.DepartmentID != nil {
		var next *uuid.UUID
		if *input.DepartmentID != "" {
			id, err := uuid.Parse(*input.DepartmentID)
			if err != nil {
				return nil, apperror.Validation("department_id must be a valid id")
			}
			if _, err := s.departmentRepo.FindByID(ctx, id); err != nil {
				return nil, err
			}
			next = &id
		}

		if !sameDepartment(profile.DepartmentID, next) {
			roles, err := s.repo.GetRoles(ctx, userID)
			if err != nil {
				return nil, err
			}
			// The department scopes a hod's status rights, so only a principal moves it.
			if policy.HasRole(policy.Actor{UserID: userID, Roles: roles}, entity.RoleHod) {
				return nil, fmt.Errorf("department of a hod is assigned by a principal: %w", apperror.ErrForbidden)
			}
		}
		profile.DepartmentID = next
	}

	if err := s.repo.UpdateProfile(ctx, profile); err != nil {
		return nil, err
	}

	return s.GetCurrentProfile(ctx, userID)
}

func sameDepartment(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
