package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"wellness-service/internal/model"
	"wellness-service/prometheus"
)

// Postgres SQLSTATE codes translated into storage errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// GormStore is the durable Storage backed by Postgres through gorm.
// Uniqueness and cascades are enforced by the schema in pkg/database/migrations.
type GormStore struct {
	db    *gorm.DB
	cost  int
	decoy []byte
	now   func() time.Time
}

// GormOption customises a GormStore.
type GormOption func(*GormStore)

// WithBcryptCost sets the bcrypt work factor used for new passwords.
func WithBcryptCost(cost int) GormOption {
	return func(s *GormStore) {
		s.cost = cost
	}
}

// NewGormStore wraps an open gorm connection.
func NewGormStore(db *gorm.DB, opts ...GormOption) *GormStore {
	s := &GormStore{
		db:   db,
		cost: DefaultBcryptCost,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.decoy = decoyHash(s.cost)
	return s
}

// DB exposes the underlying connection for wrappers in this package.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

func (s *GormStore) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var user model.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by id %d: %w", id, err)
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return &user, nil
}

// CreateUser hashes the password and inserts the row. A taken email surfaces
// as ErrDuplicateEmail from the unique index, not from a pre-check.
func (s *GormStore) CreateUser(ctx context.Context, input model.CreateUserInput) (*model.User, error) {
	hashed, err := hashPassword(input.Password, s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.insertUser(ctx, &model.User{
		Email:    normalizeEmail(input.Email),
		Name:     input.Name,
		Password: hashed,
	})
}

func (s *GormStore) insertUser(ctx context.Context, user *model.User) (*model.User, error) {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	now := s.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *GormStore) UpdateUser(ctx context.Context, id uint, input model.UpdateUserInput) (*model.User, error) {
	changes := map[string]interface{}{}
	if input.Email != nil {
		changes["email"] = normalizeEmail(*input.Email)
	}
	if input.Name != nil {
		changes["name"] = *input.Name
	}
	if input.Password != nil {
		hashed, err := hashPassword(*input.Password, s.cost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		changes["password"] = hashed
	}
	return s.applyUserChanges(ctx, id, changes)
}

func (s *GormStore) applyUserChanges(ctx context.Context, id uint, changes map[string]interface{}) (*model.User, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	now := s.now()
	changes["updated_at"] = now
	if err := s.db.WithContext(ctx).Model(user).Updates(changes).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to update user id %d: %w", id, err)
	}

	if v, ok := changes["email"].(string); ok {
		user.Email = v
	}
	if v, ok := changes["name"].(string); ok {
		user.Name = v
	}
	if v, ok := changes["password"].(string); ok {
		user.Password = v
	}
	user.UpdatedAt = now
	return user, nil
}

// DeleteUser removes the user row; profile, mood, habit and gratitude rows
// go with it via ON DELETE CASCADE.
func (s *GormStore) DeleteUser(ctx context.Context, id uint) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())

	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.User{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete user id %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *GormStore) GetUserProfile(ctx context.Context, userID uint) (*model.UserProfile, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var profile model.UserProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("profile for user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile for user %d: %w", userID, err)
	}
	return &profile, nil
}

func (s *GormStore) CreateUserProfile(ctx context.Context, userID uint, input model.ProfileInput) (*model.UserProfile, error) {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	now := s.now()
	profile := model.UserProfile{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	input.Apply(&profile)

	if err := s.db.WithContext(ctx).Omit("User").Create(&profile).Error; err != nil {
		switch {
		case isForeignKeyViolation(err):
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		case isUniqueViolation(err):
			return nil, ErrProfileExists
		}
		return nil, fmt.Errorf("failed to create profile for user %d: %w", userID, err)
	}
	return &profile, nil
}

func (s *GormStore) UpdateUserProfile(ctx context.Context, userID uint, input model.ProfileInput) (*model.UserProfile, error) {
	profile, err := s.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	now := s.now()
	changes := input.Changes()
	changes["updated_at"] = now
	if err := s.db.WithContext(ctx).Model(profile).Updates(changes).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile for user %d: %w", userID, err)
	}
	input.Apply(profile)
	profile.UpdatedAt = now
	return profile, nil
}

func (s *GormStore) GetUserWithProfile(ctx context.Context, userID uint) (*model.UserWithProfile, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.GetUserProfile(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return &model.UserWithProfile{User: user}, nil
	}
	if err != nil {
		return nil, err
	}
	return &model.UserWithProfile{User: user, Profile: profile}, nil
}

func (s *GormStore) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var hash string
	if user != nil {
		hash = user.Password
	}
	if !verifyPassword(hash, s.decoy, password) || user == nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *GormStore) CreateMoodEntry(ctx context.Context, userID uint, input model.MoodInput) (*model.MoodEntry, error) {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	now := s.now()
	entry := input.Entry(userID, now)
	entry.CreatedAt = now
	if err := s.db.WithContext(ctx).Omit("User").Create(&entry).Error; err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to create mood entry for user %d: %w", userID, err)
	}
	return &entry, nil
}

func (s *GormStore) ListMoodEntries(ctx context.Context, userID uint, limit int) ([]model.MoodEntry, error) {
	if _, err := s.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	entries := []model.MoodEntry{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(listLimit(limit)).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list mood entries for user %d: %w", userID, err)
	}
	return entries, nil
}

func (s *GormStore) CreateHabit(ctx context.Context, userID uint, input model.HabitInput) (*model.Habit, error) {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	now := s.now()
	habit := input.Habit(userID, now)
	habit.CreatedAt = now
	if err := s.db.WithContext(ctx).Omit("User").Create(&habit).Error; err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to create habit for user %d: %w", userID, err)
	}
	return &habit, nil
}

func (s *GormStore) ListHabits(ctx context.Context, userID uint, date string) ([]model.Habit, error) {
	if _, err := s.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	habits := []model.Habit{}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date).
		Order("id").
		Find(&habits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list habits for user %d: %w", userID, err)
	}
	return habits, nil
}

// SetHabitCompleted looks the habit up by id and owner, so another user's
// habit id reads as ErrNotFound.
func (s *GormStore) SetHabitCompleted(ctx context.Context, userID, habitID uint, completed bool) (*model.Habit, error) {
	defer prometheus.TrackDBOperation("update")(time.Now())

	var habit model.Habit
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", habitID, userID).First(&habit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("habit %d of user %d: %w", habitID, userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find habit %d: %w", habitID, err)
	}

	if err := s.db.WithContext(ctx).Model(&habit).Update("completed", completed).Error; err != nil {
		return nil, fmt.Errorf("failed to update habit %d: %w", habitID, err)
	}
	habit.Completed = completed
	return &habit, nil
}

func (s *GormStore) CreateGratitudeEntry(ctx context.Context, userID uint, input model.GratitudeInput) (*model.GratitudeEntry, error) {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	now := s.now()
	entry := input.Entry(userID, now)
	entry.CreatedAt = now
	if err := s.db.WithContext(ctx).Omit("User").Create(&entry).Error; err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to create gratitude entry for user %d: %w", userID, err)
	}
	return &entry, nil
}

func (s *GormStore) ListGratitudeEntries(ctx context.Context, userID uint, limit int) ([]model.GratitudeEntry, error) {
	if _, err := s.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	entries := []model.GratitudeEntry{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(listLimit(limit)).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list gratitude entries for user %d: %w", userID, err)
	}
	return entries, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
