package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/isdelr/sharehub-be/internal/models"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	Init("test-secret-key")

	user := models.User{ID: "user-1", Name: "Alice"}
	token, err := GenerateJWT(user)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("expected userId 'user-1', got %q", claims.UserID)
	}
	if claims.Name != "Alice" {
		t.Errorf("expected name 'Alice', got %q", claims.Name)
	}
}

func TestValidateJWTWrongSecret(t *testing.T) {
	Init("secret1")
	token, _ := GenerateJWT(models.User{ID: "user-1"})

	Init("secret2")
	if _, err := ValidateJWT(token); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestValidateJWTGarbage(t *testing.T) {
	Init("secret")
	if _, err := ValidateJWT("not-a-token"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestTokenExpirySevenDays(t *testing.T) {
	Init("secret")
	token, _ := GenerateJWT(models.User{ID: "user-1"})
	claims, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}

	expected := time.Now().Add(TokenExpiry)
	diff := expected.Sub(claims.ExpiresAt.Time)
	if diff < -5*time.Second || diff > 5*time.Second {
		t.Errorf("token expiry too far from expected: diff=%v", diff)
	}
}

func TestTokenFromRequest(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	if got := TokenFromRequest(r); got != "" {
		t.Errorf("expected empty token, got %q", got)
	}

	r.Header.Set("Authorization", "Bearer header-token")
	if got := TokenFromRequest(r); got != "header-token" {
		t.Errorf("expected header token, got %q", got)
	}

	// Header takes precedence over the cookie.
	r.AddCookie(&http.Cookie{Name: "token", Value: "cookie-token"})
	if got := TokenFromRequest(r); got != "header-token" {
		t.Errorf("expected header token to win, got %q", got)
	}

	r2, _ := http.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(&http.Cookie{Name: "token", Value: "cookie-token"})
	if got := TokenFromRequest(r2); got != "cookie-token" {
		t.Errorf("expected cookie token, got %q", got)
	}
}
