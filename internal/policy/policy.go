// Package policy holds the access and lifecycle rules shared by the HTTP
// gates and the services. Nothing here touches storage.
package policy

import (
	"math"
	"strings"
	"time"

	"anoa.com/campusfix/internal/entity"
	"github.com/google/uuid"
)

// Actor is the authenticated identity a rule is evaluated against.
type Actor struct {
	UserID       uuid.UUID
	DepartmentID *uuid.UUID
	Roles        []string
}

func HasRole(a Actor, role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func CanAccessHodDashboard(a Actor) bool {
	return HasRole(a, entity.RoleHod)
}

func CanAccessPrincipalDashboard(a Actor) bool {
	return HasRole(a, entity.RolePrincipal)
}

// CanReadAllRoles reports whether the actor may list roles of other users.
func CanReadAllRoles(a Actor) bool {
	return HasRole(a, entity.RolePrincipal)
}

// CanReadRolesOf allows self reads and principal reads.
func CanReadRolesOf(a Actor, target uuid.UUID) bool {
	return a.UserID == target || CanReadAllRoles(a)
}

// CanSetStatus: principals for any issue, HoDs only within their own department.
func CanSetStatus(a Actor, issue *entity.Issue) bool {
	if issue == nil {
		return false
	}
	if HasRole(a, entity.RolePrincipal) {
		return true
	}
	return HasRole(a, entity.RoleHod) && a.DepartmentID != nil && *a.DepartmentID == issue.DepartmentID
}

func CanDelete(a Actor, issue *entity.Issue) bool {
	return issue != nil && issue.ReporterID == a.UserID
}

// StatusScope returns the department restriction applied to a status update.
// A nil scope with ok=true means unrestricted; ok=false means no status rights.
func StatusScope(a Actor) (scope *uuid.UUID, ok bool) {
	if HasRole(a, entity.RolePrincipal) {
		return nil, true
	}
	if HasRole(a, entity.RoleHod) && a.DepartmentID != nil {
		dept := *a.DepartmentID
		return &dept, true
	}
	return nil, false
}

// DaysRemaining is the ceiling of whole days until deadline. Negative when overdue.
func DaysRemaining(deadline, now time.Time) int {
	return int(math.Ceil(deadline.Sub(now).Hours() / 24))
}

func ValidStatus(s string) bool {
	return entity.IssueStatus(s).Valid()
}

// ResolutionRule decides the resolved_at value written alongside a status change.
type ResolutionRule interface {
	Resolve(current *time.Time, next entity.IssueStatus, now time.Time) *time.Time
}

// KeepFirstResolution stamps resolved_at on work_done and never clears it on reopen.
type KeepFirstResolution struct{}

func (KeepFirstResolution) Resolve(current *time.Time, next entity.IssueStatus, now time.Time) *time.Time {
	if next == entity.StatusWorkDone {
		t := now
		return &t
	}
	return current
}

// ClearOnReopen clears resolved_at whenever the issue leaves work_done.
type ClearOnReopen struct{}

func (ClearOnReopen) Resolve(_ *time.Time, next entity.IssueStatus, now time.Time) *time.Time {
	if next == entity.StatusWorkDone {
		t := now
		return &t
	}
	return nil
}

const (
	ResolutionKeepFirst     = "keep_first"
	ResolutionClearOnReopen = "clear_on_reopen"
)

// ResolutionRuleFromName maps the config value to a rule, defaulting to KeepFirstResolution.
func ResolutionRuleFromName(name string) ResolutionRule {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ResolutionClearOnReopen:
		return ClearOnReopen{}
	default:
		return KeepFirstResolution{}
	}
}
