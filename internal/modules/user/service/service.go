package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoa.com/campusfix/internal/entity"
	departmentRepo "anoa.com/campusfix/internal/modules/department/repository"
	"anoa.com/campusfix/internal/modules/user/dto"
	"anoa.com/campusfix/internal/modules/user/repository"
	"anoa.com/campusfix/pkg/apperror"
	"anoa.com/campusfix/pkg/validator"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = fmt.Errorf("invalid credentials: %w", apperror.ErrUnauthorized)

type AuthService interface {
	Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error)
	Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error)
}

type authService struct {
	repo           repository.UserRepository
	departmentRepo departmentRepo.DepartmentRepository
	secret         string
	tokenTTL       time.Duration
}

func NewAuthService(repo repository.UserRepository, departmentRepo departmentRepo.DepartmentRepository, secret string, tokenTTL time.Duration) AuthService {
	return &authService{
		repo:           repo,
		departmentRepo: departmentRepo,
		secret:         secret,
		tokenTTL:       tokenTTL,
	}
}

func (s *authService) Register(ctx context.Context, input dto.RegisterInput) (*dto.AuthResponse, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.CollegeID = strings.TrimSpace(input.CollegeID)
	input.FullName = strings.TrimSpace(input.FullName)
	if err := validator.Struct(input); err != nil {
		return nil, err
	}

	var departmentID *uuid.UUID
	if input.DepartmentID != nil && *input.DepartmentID != "" {
		id, err := uuid.Parse(*input.DepartmentID)
		if err != nil {
			return nil, apperror.Validation("department_id must be a valid id")
		}
		if _, err := s.departmentRepo.FindByID(ctx, id); err != nil {
			return nil, err
		}
		departmentID = &id
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		Email:        input.Email,
		PasswordHash: string(hashed),
	}
	profile := &entity.Profile{
		CollegeID:    input.CollegeID,
		FullName:     input.FullName,
		Email:        input.Email,
		DepartmentID: departmentID,
	}

	if err := s.repo.Create(ctx, user, profile); err != nil {
		return nil, err
	}

	created, err := s.repo.FindByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.buildAuthResponse(created)
}

func (s *authService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	return s.buildAuthResponse(user)
}

func (s *authService) buildAuthResponse(user *entity.User) (*dto.AuthResponse, error) {
	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresAt,
		User:        user,
		Profile:     user.Profile,
		Roles:       user.RoleNames(),
	}, nil
}

func (s *authService) generateToken(user *entity.User) (string, int64, error) {
	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", 0, err
	}

	return signed, expiresAt.Unix(), nil
}
