package repository

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/campusfix/internal/entity"
	"anoa.com/campusfix/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	// Create inserts the user, its profile and the default student role atomically.
	Create(ctx context.Context, user *entity.User, profile *entity.Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindProfile(ctx context.Context, userID uuid.UUID) (*entity.Profile, error)
	UpdateProfile(ctx context.Context, profile *entity.Profile) error
	// SetDepartment moves a user to another department regardless of role.
	SetDepartment(ctx context.Context, userID uuid.UUID, departmentID *uuid.UUID) error
	GetRoles(ctx context.Context, userID uuid.UUID) ([]string, error)
	AddRole(ctx context.Context, userID uuid.UUID, role string) error
	RemoveRole(ctx context.Context, userID uuid.UUID, role string) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User, profile *entity.Profile) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			return err
		}

		profile.UserID = user.ID
		if err := tx.Omit(clause.Associations).Create(profile).Error; err != nil {
			return err
		}

		return tx.Create(&entity.UserRole{UserID: user.ID, Role: entity.RoleStudent}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("email or college id already registered: %w", apperror.ErrConflict)
		}
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return fmt.Errorf("department not found: %w", apperror.ErrNotFound)
		}
		return err
	}

	user.Profile = profile
	user.Roles = []entity.UserRole{{UserID: user.ID, Role: entity.RoleStudent}}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).
		Preload("Profile").
		Preload("Roles").
		Where("id = ?", id).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).
		Preload("Profile").
		Preload("Roles").
		Where("email = ?", email).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindProfile(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	var profile entity.Profile
	if err := r.db.WithContext(ctx).
		Preload("Department").
		Where("user_id = ?", userID).
		First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("profile not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile writes only the mutable columns; college_id and email stay as
// registered. A hod keeps their department: the update matches no row if it
// would move one, and ErrForbidden is returned.
func (r *userRepository) UpdateProfile(ctx context.Context, profile *entity.Profile) error {
	hodRole := r.db.Model(&entity.UserRole{}).
		Select("1").
		Where("user_roles.user_id = profiles.user_id AND user_roles.role = ?", entity.RoleHod)

	result := r.db.WithContext(ctx).
		Model(&entity.Profile{}).
		Where("user_id = ?", profile.UserID).
		Where("department_id IS NOT DISTINCT FROM ? OR NOT EXISTS (?)", profile.DepartmentID, hodRole).
		Updates(map[string]any{
			"full_name":     profile.FullName,
			"department_id": profile.DepartmentID,
		})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrForeignKeyViolated) {
			return fmt.Errorf("department not found: %w", apperror.ErrNotFound)
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.FindProfile(ctx, profile.UserID); err != nil {
			return err
		}
		return fmt.Errorf("department of a hod is assigned by a principal: %w", apperror.ErrForbidden)
	}
	return nil
}

func (r *userRepository) SetDepartment(ctx context.Context, userID uuid.UUID, departmentID *uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Profile{}).
		Where("user_id = ?", userID).
		Update("department_id", departmentID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrForeignKeyViolated) {
			return fmt.Errorf("department not found: %w", apperror.ErrNotFound)
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("profile not found: %w", apperror.ErrNotFound)
	}
	return nil
}

func (r *userRepository) GetRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var roles []string
	err := r.db.WithContext(ctx).
		Model(&entity.UserRole{}).
		Where("user_id = ?", userID).
		Order("role ASC").
		Pluck("role", &roles).Error
	return roles, err
}

// AddRole is a no-op when the user already holds the role.
func (r *userRepository) AddRole(ctx context.Context, userID uuid.UUID, role string) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.UserRole{UserID: userID, Role: role}).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("user not found: %w", apperror.ErrNotFound)
	}
	return err
}

func (r *userRepository) RemoveRole(ctx context.Context, userID uuid.UUID, role string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, role).
		Delete(&entity.UserRole{})
	return result.RowsAffected, result.Error
}
