package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/sharehub-be/internal/geo"
	"github.com/isdelr/sharehub-be/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// ErrEmailTaken is returned when an email is already used by another account.
var ErrEmailTaken = errors.New("email is already taken")

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetUserByID(id string) (models.User, error)
	CreateUser(name, email, password, address string, location models.Location) (models.User, error)
	UpdateProfile(id, name, email, address string) (models.User, error)
	AuthenticateUser(email, password string) (models.User, error)
}

// UserService provides business logic for user management.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

const userColumns = `id, name, email, password_hash, avatar, address, lat, lng,
	rating, total_ratings, items_shared, items_received, created_at, updated_at`

func scanUser(scanner interface{ Scan(...interface{}) error }) (models.User, error) {
	var user models.User
	err := scanner.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Avatar,
		&user.Address, &user.Location.Lat, &user.Location.Lng,
		&user.Rating, &user.TotalRatings, &user.ItemsShared, &user.ItemsReceived,
		&user.CreatedAt, &user.UpdatedAt,
	)
	return user, err
}

// GetUserByID retrieves a single user by their ID, sanitized.
func (s *UserService) GetUserByID(id string) (models.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return models.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

// GetUserByEmail retrieves a single user by their email, including the password hash.
func (s *UserService) GetUserByEmail(email string) (models.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE email = ?", email)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, fmt.Errorf("user with email %s: %w", email, ErrNotFound)
		}
		return models.User{}, err
	}
	return user, nil
}

// CreateUser creates a new user, hashing their password.
func (s *UserService) CreateUser(name, email, password, address string, location models.Location) (models.User, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" {
		return models.User{}, fmt.Errorf("name and email are required: %w", ErrValidation)
	}
	if len(password) < 8 {
		return models.User{}, fmt.Errorf("password must be at least 8 characters: %w", ErrValidation)
	}
	if !geo.Valid(location.Lat, location.Lng) {
		return models.User{}, fmt.Errorf("invalid location: %w", ErrValidation)
	}

	if _, err := s.GetUserByEmail(email); err == nil {
		return models.User{}, ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Address:      address,
		Location:     location,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	stmt, err := s.db.Prepare(`
		INSERT INTO users (id, name, email, password_hash, address, lat, lng, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return models.User{}, err
	}
	defer stmt.Close()

	_, err = stmt.Exec(user.ID, user.Name, user.Email, user.PasswordHash,
		user.Address, user.Location.Lat, user.Location.Lng, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return models.User{}, err
	}

	// Return user without password hash
	user.PasswordHash = ""
	return user, nil
}

// UpdateProfile updates a user's non-sensitive information. The email must
// not belong to a different account.
func (s *UserService) UpdateProfile(id, name, email, address string) (models.User, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" {
		return models.User{}, fmt.Errorf("name and email are required: %w", ErrValidation)
	}

	var takenBy string
	err := s.db.QueryRow("SELECT id FROM users WHERE email = ? AND id != ?", email, id).Scan(&takenBy)
	if err == nil {
		return models.User{}, ErrEmailTaken
	}
	if err != sql.ErrNoRows {
		return models.User{}, err
	}

	res, err := s.db.Exec("UPDATE users SET name = ?, email = ?, address = ?, updated_at = ? WHERE id = ?",
		name, email, address, time.Now().UTC(), id)
	if err != nil {
		return models.User{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return s.GetUserByID(id)
}

// AuthenticateUser verifies a user's credentials.
func (s *UserService) AuthenticateUser(email, password string) (models.User, error) {
	user, err := s.GetUserByEmail(email)
	if err != nil {
		return models.User{}, fmt.Errorf("authentication failed: user not found")
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		return models.User{}, fmt.Errorf("authentication failed: invalid password")
	}

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}
