package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"anoa.com/campusfix/internal/policy"
	"anoa.com/campusfix/pkg/apperror"
	"anoa.com/campusfix/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const actorKey = "actor"

// ActorResolver loads the roles and department of an authenticated user.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID uuid.UUID) (policy.Actor, error)
}

type AuthMiddleware struct {
	actors ActorResolver
	secret string
}

func NewAuthMiddleware(actors ActorResolver, secret string) *AuthMiddleware {
	return &AuthMiddleware{
		actors: actors,
		secret: secret,
	}
}

// RequireAuth validates the bearer token and stores "user_id" and the resolved actor.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// Browsers cannot set headers on websocket upgrades.
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(m.secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		claims, ok := token.Claims.(*jwt.RegisteredClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
			return
		}

		actor, err := m.actors.ResolveActor(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
				return
			}
			response.ResponseError(c, err)
			c.Abort()
			return
		}

		c.Set("user_id", userID.String())
		c.Set(actorKey, actor)
		c.Next()
	}
}

// RequireRole lets the request through when the actor holds any of roles.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := CurrentActor(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			return
		}

		for _, role := range roles {
			if policy.HasRole(actor, role) {
				c.Next()
				return
			}
		}

		slog.InfoContext(c.Request.Context(), "role check denied",
			"user_id", actor.UserID,
			"required", roles,
			"path", c.FullPath())
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": fmt.Sprintf("%s role required", strings.Join(roles, " or ")),
		})
	}
}

// CurrentActor returns the actor stored by RequireAuth.
func CurrentActor(c *gin.Context) (policy.Actor, error) {
	value, exists := c.Get(actorKey)
	if !exists {
		return policy.Actor{}, apperror.ErrUnauthorized
	}
	actor, ok := value.(policy.Actor)
	if !ok {
		return policy.Actor{}, apperror.ErrUnauthorized
	}
	return actor, nil
}
