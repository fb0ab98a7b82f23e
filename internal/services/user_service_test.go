package services

import (
	"errors"
	"testing"

	"github.com/isdelr/sharehub-be/internal/database"
	"github.com/isdelr/sharehub-be/internal/models"
)

func TestCreateUserAndAuthenticate(t *testing.T) {
	users := NewUserService(database.NewTestDB(t))

	created, err := users.CreateUser("Alice", "alice@example.com", "password123", "1 Test St", models.Location{Lat: 52.52, Lng: 13.405})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if created.PasswordHash != "" {
		t.Error("password hash leaked in create response")
	}

	user, err := users.AuthenticateUser("alice@example.com", "password123")
	if err != nil {
		t.Fatalf("AuthenticateUser: %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("expected user %s, got %s", created.ID, user.ID)
	}
	if user.PasswordHash != "" {
		t.Error("password hash leaked in auth response")
	}

	if _, err := users.AuthenticateUser("alice@example.com", "wrong-password"); err == nil {
		t.Error("expected error for wrong password")
	}
	if _, err := users.AuthenticateUser("nobody@example.com", "password123"); err == nil {
		t.Error("expected error for unknown email")
	}
}

func TestCreateUserValidation(t *testing.T) {
	users := NewUserService(database.NewTestDB(t))
	loc := models.Location{Lat: 52.52, Lng: 13.405}

	if _, err := users.CreateUser("", "a@example.com", "password123", "", loc); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for missing name, got %v", err)
	}
	if _, err := users.CreateUser("Alice", "a@example.com", "short", "", loc); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for short password, got %v", err)
	}
	if _, err := users.CreateUser("Alice", "a@example.com", "password123", "", models.Location{Lat: 100}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for bad location, got %v", err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	users := NewUserService(database.NewTestDB(t))
	loc := models.Location{Lat: 52.52, Lng: 13.405}

	if _, err := users.CreateUser("Alice", "alice@example.com", "password123", "", loc); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := users.CreateUser("Other Alice", "alice@example.com", "password456", "", loc); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	users := NewUserService(database.NewTestDB(t))
	loc := models.Location{Lat: 52.52, Lng: 13.405}

	alice, _ := users.CreateUser("Alice", "alice@example.com", "password123", "", loc)
	users.CreateUser("Bob", "bob@example.com", "password123", "", loc)

	updated, err := users.UpdateProfile(alice.ID, "Alice B", "aliceb@example.com", "2 New St")
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Name != "Alice B" || updated.Email != "aliceb@example.com" || updated.Address != "2 New St" {
		t.Errorf("profile not updated: %+v", updated)
	}
	if updated.PasswordHash != "" {
		t.Error("password hash leaked in update response")
	}

	// Keeping your own email is fine.
	if _, err := users.UpdateProfile(alice.ID, "Alice B", "aliceb@example.com", ""); err != nil {
		t.Errorf("expected no error keeping own email, got %v", err)
	}

	// Taking another user's email is not.
	if _, err := users.UpdateProfile(alice.ID, "Alice B", "bob@example.com", ""); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}

	// Missing required fields.
	if _, err := users.UpdateProfile(alice.ID, "", "aliceb@example.com", ""); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}

	// Unknown user.
	if _, err := users.UpdateProfile("no-such-user", "Name", "new@example.com", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetUserByIDNotFound(t *testing.T) {
	users := NewUserService(database.NewTestDB(t))
	if _, err := users.GetUserByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
