package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anoa.com/campusfix/internal/entity"
	"anoa.com/campusfix/internal/policy"
	"anoa.com/campusfix/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

const testSecret = "middleware-secret"

type stubResolver map[uuid.UUID]policy.Actor

func (s stubResolver) ResolveActor(_ context.Context, userID uuid.UUID) (policy.Actor, error) {
	actor, ok := s[userID]
	if !ok {
		return policy.Actor{}, apperror.ErrNotFound
	}
	return actor, nil
}

type failingResolver struct{}

func (failingResolver) ResolveActor(context.Context, uuid.UUID) (policy.Actor, error) {
	return policy.Actor{}, errors.New("db down")
}

func signToken(t *testing.T, subject string, secret string, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signToken() failed: %v", err)
	}
	return signed
}

func newRouter(resolver ActorResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	m := NewAuthMiddleware(resolver, testSecret)

	r := gin.New()
	r.Use(RequestID())
	protected := r.Group("", m.RequireAuth())
	protected.GET("/whoami", func(c *gin.Context) {
		actor, err := CurrentActor(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id"), "roles": actor.Roles})
	})
	protected.GET("/principal", m.RequireRole(entity.RolePrincipal), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	protected.GET("/staff", m.RequireRole(entity.RoleHod, entity.RolePrincipal), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	student := uuid.New()
	router := newRouter(stubResolver{
		student: {UserID: student, Roles: []string{entity.RoleStudent}},
	})

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{name: "no token", path: "/whoami", want: http.StatusUnauthorized},
		{name: "valid bearer", path: "/whoami", header: "Bearer " + signToken(t, student.String(), testSecret, time.Hour), want: http.StatusOK},
		{name: "query token", path: "/whoami?token=" + signToken(t, student.String(), testSecret, time.Hour), want: http.StatusOK},
		{name: "wrong secret", path: "/whoami", header: "Bearer " + signToken(t, student.String(), "other", time.Hour), want: http.StatusUnauthorized},
		{name: "expired", path: "/whoami", header: "Bearer " + signToken(t, student.String(), testSecret, -time.Hour), want: http.StatusUnauthorized},
		{name: "bad subject", path: "/whoami", header: "Bearer " + signToken(t, "alice", testSecret, time.Hour), want: http.StatusUnauthorized},
		{name: "unknown user", path: "/whoami", header: "Bearer " + signToken(t, uuid.NewString(), testSecret, time.Hour), want: http.StatusUnauthorized},
		{name: "malformed header", path: "/whoami", header: "Token abc", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestRequireAuthResolverFailure(t *testing.T) {
	router := newRouter(failingResolver{})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, uuid.NewString(), testSecret, time.Hour))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequireRole(t *testing.T) {
	student := uuid.New()
	hod := uuid.New()
	principal := uuid.New()
	router := newRouter(stubResolver{
		student:   {UserID: student, Roles: []string{entity.RoleStudent}},
		hod:       {UserID: hod, Roles: []string{entity.RoleHod}},
		principal: {UserID: principal, Roles: []string{entity.RolePrincipal, entity.RoleTeacher}},
	})

	tests := []struct {
		name string
		user uuid.UUID
		path string
		want int
	}{
		{name: "student denied principal route", user: student, path: "/principal", want: http.StatusForbidden},
		{name: "hod denied principal route", user: hod, path: "/principal", want: http.StatusForbidden},
		{name: "principal allowed", user: principal, path: "/principal", want: http.StatusNoContent},
		{name: "hod allowed on staff route", user: hod, path: "/staff", want: http.StatusNoContent},
		{name: "student denied staff route", user: student, path: "/staff", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, tt.user.String(), testSecret, time.Hour))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequestIDPropagates(t *testing.T) {
	router := newRouter(stubResolver{})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}
