package department

import (
	"context"
	"testing"

	"anoa.com/campusfix/internal/entity"
	"anoa.com/campusfix/internal/modules/department/dto"
	"anoa.com/campusfix/internal/policy"
	"anoa.com/campusfix/internal/testutil"
	"anoa.com/campusfix/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDepartment(t *testing.T) {
	svc := NewDepartmentService(testutil.NewDepartmentRepo())
	ctx := context.Background()
	principal := policy.Actor{UserID: uuid.New(), Roles: []string{entity.RolePrincipal}}

	resp, err := svc.CreateDepartment(ctx, principal, dto.CreateDepartmentRequest{Name: "  Physics ", Code: "phy"})
	require.NoError(t, err)
	assert.Equal(t, "Physics", resp.Name)
	assert.Equal(t, "PHY", resp.Code)
	assert.NotEqual(t, uuid.Nil, resp.ID)

	_, err = svc.CreateDepartment(ctx, principal, dto.CreateDepartmentRequest{Name: "Applied Physics", Code: "PHY"})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = svc.CreateDepartment(ctx, principal, dto.CreateDepartmentRequest{Name: " ", Code: "X"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	hod := policy.Actor{UserID: uuid.New(), Roles: []string{entity.RoleHod}}
	_, err = svc.CreateDepartment(ctx, hod, dto.CreateDepartmentRequest{Name: "Chemistry", Code: "CHEM"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestListDepartments(t *testing.T) {
	repo := testutil.NewDepartmentRepo()
	repo.Add("Mechanical Engineering", "MECH")
	repo.Add("Civil Engineering", "CIVIL")
	svc := NewDepartmentService(repo)

	list, err := svc.ListDepartments(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "CIVIL", list[0].Code)
	assert.Equal(t, "MECH", list[1].Code)
}
