package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"anoa.com/campusfix/internal/entity"
	userRepo "anoa.com/campusfix/internal/modules/user/repository"
	"anoa.com/campusfix/pkg/apperror"
	"github.com/google/uuid"
)

type UserRepo struct {
	mu       sync.Mutex
	users    map[uuid.UUID]entity.User
	profiles map[uuid.UUID]entity.Profile
	roles    map[uuid.UUID]map[string]bool

	// RolesErr is returned by GetRoles when set.
	RolesErr error
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		users:    make(map[uuid.UUID]entity.User),
		profiles: make(map[uuid.UUID]entity.Profile),
		roles:    make(map[uuid.UUID]map[string]bool),
	}
}

func (r *UserRepo) Create(_ context.Context, user *entity.User, profile *entity.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return fmt.Errorf("email or college id already registered: %w", apperror.ErrConflict)
		}
	}
	for _, p := range r.profiles {
		if p.CollegeID == profile.CollegeID {
			return fmt.Errorf("email or college id already registered: %w", apperror.ErrConflict)
		}
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.Must(uuid.NewV7())
	}
	profile.UserID = user.ID
	r.users[user.ID] = *user
	r.profiles[user.ID] = *profile
	r.roles[user.ID] = map[string]bool{entity.RoleStudent: true}
	return nil
}

func (r *UserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", apperror.ErrNotFound)
	}
	return r.load(user), nil
}

func (r *UserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.Email == email {
			return r.load(user), nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", apperror.ErrNotFound)
}

func (r *UserRepo) FindProfile(_ context.Context, userID uuid.UUID) (*entity.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile not found: %w", apperror.ErrNotFound)
	}
	return &profile, nil
}

func (r *UserRepo) UpdateProfile(_ context.Context, profile *entity.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.profiles[profile.UserID]
	if !ok {
		return fmt.Errorf("profile not found: %w", apperror.ErrNotFound)
	}
	if r.roles[profile.UserID][entity.RoleHod] && !sameDepartment(current.DepartmentID, profile.DepartmentID) {
		return fmt.Errorf("department of a hod is assigned by a principal: %w", apperror.ErrForbidden)
	}
	current.FullName = profile.FullName
	current.DepartmentID = profile.DepartmentID
	current.Department = nil
	r.profiles[profile.UserID] = current
	return nil
}

func (r *UserRepo) SetDepartment(_ context.Context, userID uuid.UUID, departmentID *uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.profiles[userID]
	if !ok {
		return fmt.Errorf("profile not found: %w", apperror.ErrNotFound)
	}
	current.DepartmentID = departmentID
	current.Department = nil
	r.profiles[userID] = current
	return nil
}

func sameDepartment(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (r *UserRepo) GetRoles(_ context.Context, userID uuid.UUID) ([]string, error) {
	if r.RolesErr != nil {
		return nil, r.RolesErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roleNames(userID), nil
}

func (r *UserRepo) AddRole(_ context.Context, userID uuid.UUID, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; !ok {
		return fmt.Errorf("user not found: %w", apperror.ErrNotFound)
	}
	if r.roles[userID] == nil {
		r.roles[userID] = make(map[string]bool)
	}
	r.roles[userID][role] = true
	return nil
}

func (r *UserRepo) RemoveRole(_ context.Context, userID uuid.UUID, role string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.roles[userID][role] {
		return 0, nil
	}
	delete(r.roles[userID], role)
	return 1, nil
}

// AddUser creates a user with a profile and exactly the given roles.
func (r *UserRepo) AddUser(fullName string, departmentID *uuid.UUID, roles ...string) entity.User {
	id := uuid.Must(uuid.NewV7())
	user := entity.User{ID: id, Email: id.String() + "@campus.test"}
	profile := entity.Profile{
		CollegeID:    "C-" + id.String()[:8],
		FullName:     fullName,
		Email:        user.Email,
		DepartmentID: departmentID,
	}
	if err := r.Create(context.Background(), &user, &profile); err != nil {
		panic(err)
	}

	r.mu.Lock()
	r.roles[id] = make(map[string]bool)
	for _, role := range roles {
		r.roles[id][role] = true
	}
	r.mu.Unlock()
	return user
}

func (r *UserRepo) load(user entity.User) *entity.User {
	out := user
	if profile, ok := r.profiles[user.ID]; ok {
		out.Profile = &profile
	}
	for _, role := range r.roleNames(user.ID) {
		out.Roles = append(out.Roles, entity.UserRole{UserID: user.ID, Role: role})
	}
	return &out
}

func (r *UserRepo) roleNames(userID uuid.UUID) []string {
	names := make([]string, 0, len(r.roles[userID]))
	for role := range r.roles[userID] {
		names = append(names, role)
	}
	sort.Strings(names)
	return names
}

var _ userRepo.UserRepository = (*UserRepo)(nil)
