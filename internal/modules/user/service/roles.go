package service

import (
	"context"
	"fmt"
	"log/slog"

	"anoa.com/campusfix/internal/entity"
	"anoa.com/campusfix/internal/modules/user/repository"
	"anoa.com/campusfix/internal/policy"
	"anoa.com/campusfix/pkg/apperror"
	"github.com/google/uuid"
)

type RoleService interface {
	// ResolveActor loads the identity used by every authorization check.
	ResolveActor(ctx context.Context, userID uuid.UUID) (policy.Actor, error)
	GetRoles(ctx context.Context, actor policy.Actor, userID uuid.UUID) ([]string, error)
	GrantRole(ctx context.Context, actor policy.Actor, userID uuid.UUID, role string) error
	RevokeRole(ctx context.Context, actor policy.Actor, userID uuid.UUID, role string) error
	// AssignDepartment sets any user's department; nil clears it.
	AssignDepartment(ctx context.Context, actor policy.Actor, userID uuid.UUID, departmentID *uuid.UUID) error
}

type roleService struct {
	repo repository.UserRepository
}

func NewRoleService(repo repository.UserRepository) RoleService {
	return &roleService{repo: repo}
}

func (s *roleService) ResolveActor(ctx context.Context, userID uuid.UUID) (policy.Actor, error) {
	actor := policy.Actor{UserID: userID}

	profile, err := s.repo.FindProfile(ctx, userID)
	if err != nil {
		return actor, err
	}
	actor.DepartmentID = profile.DepartmentID

	roles, err := s.repo.GetRoles(ctx, userID)
	if err != nil {
		// A failed role lookup degrades to "no roles" so every gate denies.
		slog.WarnContext(ctx, "role lookup failed", "user_id", userID, "error", err)
		return actor, nil
	}
	actor.Roles = roles
	return actor, nil
}

func (s *roleService) GetRoles(ctx context.Context, actor policy.Actor, userID uuid.UUID) ([]string, error) {
	if !policy.CanReadRolesOf(actor, userID) {
		return nil, fmt.Errorf("cannot read roles of another user: %w", apperror.ErrForbidden)
	}

	roles, err := s.repo.GetRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []string{}
	}
	return roles, nil
}

func (s *roleService) GrantRole(ctx context.Context, actor policy.Actor, userID uuid.UUID, role string) error {
	if err := s.checkRoleChange(actor, role); err != nil {
		return err
	}
	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		return err
	}
	return s.repo.AddRole(ctx, userID, role)
}

func (s *roleService) RevokeRole(ctx context.Context, actor policy.Actor, userID uuid.UUID, role string) error {
	if err := s.checkRoleChange(actor, role); err != nil {
		return err
	}

	removed, err := s.repo.RemoveRole(ctx, userID, role)
	if err != nil {
		return err
	}
	if removed == 0 {
		return fmt.Errorf("user does not hold role %s: %w", role, apperror.ErrNotFound)
	}
	return nil
}

func (s *roleService) AssignDepartment(ctx context.Context, actor policy.Actor, userID uuid.UUID, departmentID *uuid.UUID) error {
	if !policy.HasRole(actor, entity.RolePrincipal) {
		return fmt.Errorf("only a principal can assign departments: %w", apperror.ErrForbidden)
	}
	return s.repo.SetDepartment(ctx, userID, departmentID)
}

func (s *roleService) checkRoleChange(actor policy.Actor, role string) error {
	if !policy.HasRole(actor, entity.RolePrincipal) {
		return fmt.Errorf("only a principal can change roles: %w", apperror.ErrForbidden)
	}
	if !entity.IsValidRole(role) {
		return apperror.Validation("role must be one of [student teacher hod principal]")
	}
	return nil
}
