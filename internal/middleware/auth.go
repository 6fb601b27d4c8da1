package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/msntech/reports-api/internal/pkg/jwt"
	"github.com/msntech/reports-api/internal/pkg/response"
)

type contextKey string

const (
	ActorIDKey   contextKey = "actor_id"
	ActorNameKey contextKey = "actor_name"
	RoleKey      contextKey = "role"
)

// Auth returns middleware that validates JWT
func Auth(jwtService *jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract token from header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Missing authorization header")
				return
			}

			// Check Bearer prefix
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			// Validate token
			claims, err := jwtService.ValidateToken(parts[1])
			if err != nil {
				if err == jwt.ErrExpiredToken {
					response.Unauthorized(w, "Token expired")
				} else {
					response.Unauthorized(w, "Invalid token")
				}
				return
			}

			// Add claims to context
			ctx := context.WithValue(r.Context(), ActorIDKey, claims.ActorID)
			ctx = context.WithValue(ctx, ActorNameKey, claims.Name)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetActorID extracts the actor's stable identifier from context
func GetActorID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(ActorIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// GetActorName extracts the actor's display name from context
func GetActorName(ctx context.Context) string {
	if name, ok := ctx.Value(ActorNameKey).(string); ok {
		return name
	}
	return ""
}

// GetRole extracts role from context
func GetRole(ctx context.Context) string {
	if role, ok := ctx.Value(RoleKey).(string); ok {
		return role
	}
	return ""
}

// RequireRole returns middleware that checks user role
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userRole := GetRole(r.Context())

			for _, role := range roles {
				if userRole == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			response.Forbidden(w, "Insufficient permissions")
		})
	}
}

// RequireStaff returns middleware that requires the staff role
func RequireStaff() func(http.Handler) http.Handler {
	return RequireRole(jwt.RoleStaff)
}
