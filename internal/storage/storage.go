// Package storage defines the persistence contract for users, profiles,
// mood entries, habits and gratitude entries, together with its in-memory, Postgres and managed-auth
// implementations.
package storage

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"wellness-service/internal/model"
)

var (
	// ErrNotFound is returned when the referenced user, profile or habit does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrProfileExists is returned when creating a second profile for a user.
	ErrProfileExists = errors.New("profile already exists")
	// ErrInvalidCredentials is returned by AuthenticateUser for any mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPasswordTooLong is returned when a password exceeds bcrypt's byte limit.
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

// DefaultBcryptCost is the work factor used by the durable stores.
const DefaultBcryptCost = 12

// DefaultListLimit caps ListMoodEntries and ListGratitudeEntries when no
// limit is given.
const DefaultListLimit = 30

// Storage is the persistence contract used by the HTTP layer.
type Storage interface {
	GetUserByID(ctx context.Context, id uint) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, input model.CreateUserInput) (*model.User, error)
	UpdateUser(ctx context.Context, id uint, input model.UpdateUserInput) (*model.User, error)
	DeleteUser(ctx context.Context, id uint) error

	GetUserProfile(ctx context.Context, userID uint) (*model.UserProfile, error)
	CreateUserProfile(ctx context.Context, userID uint, input model.ProfileInput) (*model.UserProfile, error)
	UpdateUserProfile(ctx context.Context, userID uint, input model.ProfileInput) (*model.UserProfile, error)
	GetUserWithProfile(ctx context.Context, userID uint) (*model.UserWithProfile, error)

	AuthenticateUser(ctx context.Context, email, password string) (*model.User, error)

	CreateMoodEntry(ctx context.Context, userID uint, input model.MoodInput) (*model.MoodEntry, error)
	ListMoodEntries(ctx context.Context, userID uint, limit int) ([]model.MoodEntry, error)

	CreateHabit(ctx context.Context, userID uint, input model.HabitInput) (*model.Habit, error)
	ListHabits(ctx context.Context, userID uint, date string) ([]model.Habit, error)
	SetHabitCompleted(ctx context.Context, userID, habitID uint, completed bool) (*model.Habit, error)

	CreateGratitudeEntry(ctx context.Context, userID uint, input model.GratitudeInput) (*model.GratitudeEntry, error)
	ListGratitudeEntries(ctx context.Context, userID uint, limit int) ([]model.GratitudeEntry, error)

	Ping(ctx context.Context) error
	Close() error
}

func hashPassword(password string, cost int) (string, error) {
	if len(password) > model.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// decoyHash returns a hash of a fixed string at the given cost. It is
// compared against when the email is unknown so both failure paths of
// AuthenticateUser cost one bcrypt verification.
func decoyHash(cost int) []byte {
	hashed, err := bcrypt.GenerateFromPassword([]byte("wellness-decoy-password"), cost)
	if err != nil {
		// cost above bcrypt.MaxCost
		hashed, _ = bcrypt.GenerateFromPassword([]byte("wellness-decoy-password"), bcrypt.DefaultCost)
	}
	return hashed
}

// verifyPassword checks password against hash. An empty hash is checked
// against decoy instead and always fails.
func verifyPassword(hash string, decoy []byte, password string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(decoy, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func listLimit(limit int) int {
	if limit <= 0 || limit > 365 {
		return DefaultListLimit
	}
	return limit
}
