package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"anoa.com/campusfix/internal/entity"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Department{},
		&entity.User{},
		&entity.Profile{},
		&entity.UserRole{},
		&entity.Issue{},
		&entity.Upvote{},
		&entity.Notification{},
	)
}

// DefaultDepartments are created on first start so signup has something to pick.
var DefaultDepartments = []entity.Department{
	{Name: "Computer Science", Code: "CSE"},
	{Name: "Electronics and Communication", Code: "ECE"},
	{Name: "Mechanical Engineering", Code: "MECH"},
	{Name: "Civil Engineering", Code: "CIVIL"},
	{Name: "Administration", Code: "ADMIN"},
}

func SeedDepartments(db *gorm.DB) error {
	for _, dept := range DefaultDepartments {
		dept := dept
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&dept).Error; err != nil {
			return fmt.Errorf("seed department %s: %w", dept.Code, err)
		}
	}
	return nil
}

const (
	devPrincipalEmail    = "principal@campus.local"
	devPrincipalPassword = "principal123"
)

// SeedPrincipal creates a principal account for local development. Roles
// cannot be granted through the API without an existing principal.
func SeedPrincipal(db *gorm.DB) error {
	var existing entity.User
	err := db.Where("email = ?", devPrincipalEmail).First(&existing).Error
	if err == nil {
		slog.Info("principal user already exists, skipping seed")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(devPrincipalPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		user := entity.User{
			Email:        devPrincipalEmail,
			PasswordHash: string(hash),
		}
		if err := tx.Omit(clause.Associations).Create(&user).Error; err != nil {
			return err
		}

		profile := entity.Profile{
			UserID:    user.ID,
			CollegeID: "PRINCIPAL-001",
			FullName:  "College Principal",
			Email:     devPrincipalEmail,
		}
		if err := tx.Omit(clause.Associations).Create(&profile).Error; err != nil {
			return err
		}

		roles := []entity.UserRole{
			{UserID: user.ID, Role: entity.RoleStudent},
			{UserID: user.ID, Role: entity.RolePrincipal},
		}
		if err := tx.Create(&roles).Error; err != nil {
			return err
		}

		slog.Info("principal user seeded", "email", devPrincipalEmail)
		return nil
	})
}
