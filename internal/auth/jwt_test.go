package auth

import (
	"testing"

	"github.com/google/uuid"
)

func TestJWT_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	userID := uuid.New()
	orgID := uuid.New()

	token, err := svc.Generate(userID, "staff@example.com", "staff", &orgID)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("UserID = %s, want %s", claims.UserID, userID)
	}
	if claims.Role != "staff" {
		t.Errorf("Role = %q, want staff", claims.Role)
	}
	if claims.OrganizationID == nil || *claims.OrganizationID != orgID {
		t.Errorf("OrganizationID = %v, want %s", claims.OrganizationID, orgID)
	}
}

func TestJWT_NoOrganization(t *testing.T) {
	svc := NewJWTService("test-secret", 1)

	token, err := svc.Generate(uuid.New(), "root@example.com", "platform_admin", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.OrganizationID != nil {
		t.Errorf("OrganizationID = %v, want nil", claims.OrganizationID)
	}
}

func TestJWT_WrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 1).Generate(uuid.New(), "", "staff", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := NewJWTService("secret-b", 1).Validate(token); err != ErrInvalidToken {
		t.Errorf("Validate with wrong secret = %v, want ErrInvalidToken", err)
	}
}

func TestJWT_Garbage(t *testing.T) {
	if _, err := NewJWTService("secret", 1).Validate("not.a.token"); err != ErrInvalidToken {
		t.Errorf("Validate garbage = %v, want ErrInvalidToken", err)
	}
}
