package auth

import (
	"testing"
	"time"

	"github.com/complyguard/inspection-server/internal/core/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	mgr := NewJWTManager("test-secret", time.Hour, false)
	user := &domain.User{ID: "u-1", Email: "inspector@example.com", Role: domain.RoleInspector}

	token, err := mgr.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := mgr.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != "u-1" || claims.Email != "inspector@example.com" || claims.Role != domain.RoleInspector {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a", time.Hour, false).
		GenerateToken(&domain.User{ID: "u-1"})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	_, err = NewJWTManager("secret-b", time.Hour, false).ValidateToken(token)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestDemoTokenOnlyValidInDemoMode(t *testing.T) {
	claims, err := NewJWTManager("secret", time.Hour, true).ValidateToken(DemoToken)
	if err != nil {
		t.Fatalf("demo token should validate in demo mode: %v", err)
	}
	if claims.UserID != "demo-user" {
		t.Fatalf("unexpected demo identity: %+v", claims)
	}

	if _, err := NewJWTManager("secret", time.Hour, false).ValidateToken(DemoToken); err == nil {
		t.Fatalf("demo token must be rejected outside demo mode")
	}
}

func TestExtractToken(t *testing.T) {
	token, err := ExtractToken("Bearer abc123")
	if err != nil || token != "abc123" {
		t.Fatalf("got %q, %v", token, err)
	}
	if _, err := ExtractToken(""); err == nil {
		t.Fatalf("empty header should error")
	}
	if _, err := ExtractToken("Basic abc"); err == nil {
		t.Fatalf("non-bearer header should error")
	}
}

func TestPasswordHashAndCheck(t *testing.T) {
	hash, err := HashPassword("sup3rsecret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if err := CheckPassword("sup3rsecret", hash); err != nil {
		t.Fatalf("CheckPassword() error = %v", err)
	}
	if err := CheckPassword("wrongpass1", hash); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestValidatePasswordStrength(t *testing.T) {
	if err := ValidatePasswordStrength("short1"); err == nil {
		t.Fatalf("short password should fail")
	}
	if err := ValidatePasswordStrength("lettersonly"); err == nil {
		t.Fatalf("password without digits should fail")
	}
	if err := ValidatePasswordStrength("12345678"); err == nil {
		t.Fatalf("password without letters should fail")
	}
	if err := ValidatePasswordStrength("abc12345"); err != nil {
		t.Fatalf("valid password rejected: %v", err)
	}
}
