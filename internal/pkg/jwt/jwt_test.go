package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGenerateValidateRoundTrip(t *testing.T) {
	svc := NewService("test-secret", time.Hour)
	actorID := uuid.New()

	token, err := svc.GenerateToken(actorID, "staffA", RoleStaff)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.ActorID != actorID || claims.Name != "staffA" || claims.Role != RoleStaff {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestValidateWrongSecret(t *testing.T) {
	token, err := NewService("secret-one", time.Hour).GenerateToken(uuid.New(), "staffA", RoleStaff)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewService("secret-two", time.Hour).ValidateToken(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateExpired(t *testing.T) {
	svc := NewService("test-secret", -time.Minute)

	token, err := svc.GenerateToken(uuid.New(), "staffA", RoleStaff)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ValidateToken(token); err != ErrExpiredToken {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateGarbage(t *testing.T) {
	svc := NewService("test-secret", time.Hour)
	if _, err := svc.ValidateToken("not.a.token"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
