package policy

import (
	"testing"
	"time"

	"anoa.com/campusfix/internal/entity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanSetStatus(t *testing.T) {
	deptA := uuid.New()
	deptB := uuid.New()
	issue := &entity.Issue{ID: uuid.New(), DepartmentID: deptA}

	tests := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{"principal any department", Actor{Roles: []string{entity.RolePrincipal}}, true},
		{"hod own department", Actor{Roles: []string{entity.RoleHod}, DepartmentID: &deptA}, true},
		{"hod other department", Actor{Roles: []string{entity.RoleHod}, DepartmentID: &deptB}, false},
		{"hod without department", Actor{Roles: []string{entity.RoleHod}}, false},
		{"student", Actor{Roles: []string{entity.RoleStudent}, DepartmentID: &deptA}, false},
		{"teacher", Actor{Roles: []string{entity.RoleTeacher}, DepartmentID: &deptA}, false},
		{"no roles", Actor{}, false},
		{"student and principal", Actor{Roles: []string{entity.RoleStudent, entity.RolePrincipal}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanSetStatus(tt.actor, issue))
		})
	}
	assert.False(t, CanSetStatus(Actor{Roles: []string{entity.RolePrincipal}}, nil))
}

func TestCanDelete(t *testing.T) {
	reporter := uuid.New()
	issue := &entity.Issue{ReporterID: reporter}

	assert.True(t, CanDelete(Actor{UserID: reporter}, issue))
	assert.False(t, CanDelete(Actor{UserID: uuid.New(), Roles: []string{entity.RolePrincipal}}, issue))
}

func TestDashboardAccess(t *testing.T) {
	hod := Actor{Roles: []string{entity.RoleHod}}
	principal := Actor{Roles: []string{entity.RolePrincipal}}
	student := Actor{Roles: []string{entity.RoleStudent}}

	assert.True(t, CanAccessHodDashboard(hod))
	assert.False(t, CanAccessHodDashboard(principal))
	assert.True(t, CanAccessPrincipalDashboard(principal))
	assert.False(t, CanAccessPrincipalDashboard(hod))
	assert.False(t, CanAccessHodDashboard(student))
}

func TestCanReadRolesOf(t *testing.T) {
	self := uuid.New()
	other := uuid.New()

	assert.True(t, CanReadRolesOf(Actor{UserID: self}, self))
	assert.False(t, CanReadRolesOf(Actor{UserID: self, Roles: []string{entity.RoleHod}}, other))
	assert.True(t, CanReadRolesOf(Actor{UserID: self, Roles: []string{entity.RolePrincipal}}, other))
}

func TestStatusScope(t *testing.T) {
	dept := uuid.New()

	scope, ok := StatusScope(Actor{Roles: []string{entity.RolePrincipal}})
	assert.True(t, ok)
	assert.Nil(t, scope)

	scope, ok = StatusScope(Actor{Roles: []string{entity.RoleHod}, DepartmentID: &dept})
	assert.True(t, ok)
	if assert.NotNil(t, scope) {
		assert.Equal(t, dept, *scope)
	}

	_, ok = StatusScope(Actor{Roles: []string{entity.RoleHod}})
	assert.False(t, ok)
	_, ok = StatusScope(Actor{Roles: []string{entity.RoleStudent}})
	assert.False(t, ok)
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 30, DaysRemaining(now.Add(30*24*time.Hour), now))
	assert.Equal(t, 1, DaysRemaining(now.Add(time.Hour), now))
	assert.Equal(t, 0, DaysRemaining(now, now))
	assert.Equal(t, 0, DaysRemaining(now.Add(-time.Hour), now))
	assert.Equal(t, -1, DaysRemaining(now.Add(-25*time.Hour), now))
	assert.Equal(t, 2, DaysRemaining(now.Add(24*time.Hour+time.Minute), now))
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{"pending", "acknowledged", "work_done"} {
		assert.True(t, ValidStatus(s), s)
	}
	for _, s := range []string{"", "done", "PENDING", "resolved"} {
		assert.False(t, ValidStatus(s), s)
	}
}

func TestResolutionRules(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-48 * time.Hour)

	keep := KeepFirstResolution{}
	got := keep.Resolve(nil, entity.StatusWorkDone, now)
	if assert.NotNil(t, got) {
		assert.Equal(t, now, *got)
	}
	assert.Equal(t, &earlier, keep.Resolve(&earlier, entity.StatusPending, now))
	assert.Nil(t, keep.Resolve(nil, entity.StatusAcknowledged, now))

	reopen := ClearOnReopen{}
	assert.Nil(t, reopen.Resolve(&earlier, entity.StatusPending, now))
	got = reopen.Resolve(&earlier, entity.StatusWorkDone, now)
	if assert.NotNil(t, got) {
		assert.Equal(t, now, *got)
	}
}

func TestResolutionRuleFromName(t *testing.T) {
	assert.IsType(t, ClearOnReopen{}, ResolutionRuleFromName("clear_on_reopen"))
	assert.IsType(t, ClearOnReopen{}, ResolutionRuleFromName(" CLEAR_ON_REOPEN "))
	assert.IsType(t, KeepFirstResolution{}, ResolutionRuleFromName("keep_first"))
	assert.IsType(t, KeepFirstResolution{}, ResolutionRuleFromName(""))
}
