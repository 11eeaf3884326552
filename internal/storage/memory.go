package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"wellness-service/internal/model"
)

// Sample account seeded into a MemoryStore.
const (
	SeedEmail    = "demo@example.com"
	SeedName     = "Demo User"
	SeedPassword = "demo1234"
)

// MemoryStore is a process-lifetime Storage backed by maps. It is meant for
// local development and tests; nothing survives a restart.
type MemoryStore struct {
	mu sync.RWMutex

	users    map[uint]*model.User
	emails   map[string]uint
	profiles map[uint]*model.UserProfile        // keyed by user id
	moods    map[uint][]*model.MoodEntry        // keyed by user id
	habits   map[uint][]*model.Habit            // keyed by user id
	thanks   map[uint][]*model.GratitudeEntry   // keyed by user id

	nextUserID      uint
	nextProfileID   uint
	nextMoodID      uint
	nextHabitID     uint
	nextGratitudeID uint

	cost  int
	decoy []byte
	seed  bool
	now   func() time.Time
}

// MemoryOption customises a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryBcryptCost sets the bcrypt work factor used for new passwords.
func WithMemoryBcryptCost(cost int) MemoryOption {
	return func(s *MemoryStore) {
		s.cost = cost
	}
}

// WithoutSeed starts the store empty.
func WithoutSeed() MemoryOption {
	return func(s *MemoryStore) {
		s.seed = false
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an in-memory store seeded with one sample user and
// profile unless WithoutSeed is given.
func NewMemoryStore(opts ...MemoryOption) (*MemoryStore, error) {
	s := &MemoryStore{
		users:         make(map[uint]*model.User),
		emails:        make(map[string]uint),
		profiles:      make(map[uint]*model.UserProfile),
		moods:           make(map[uint][]*model.MoodEntry),
		habits:          make(map[uint][]*model.Habit),
		thanks:          make(map[uint][]*model.GratitudeEntry),
		nextUserID:      1,
		nextProfileID:   1,
		nextMoodID:      1,
		nextHabitID:     1,
		nextGratitudeID: 1,
		cost:            bcrypt.DefaultCost,
		seed:            true,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.decoy = decoyHash(s.cost)

	if s.seed {
		if err := s.seedData(); err != nil {
			return nil, fmt.Errorf("seed memory store: %w", err)
		}
	}
	return s, nil
}

func (s *MemoryStore) seedData() error {
	ctx := context.Background()
	user, err := s.CreateUser(ctx, model.CreateUserInput{
		Email:    SeedEmail,
		Name:     SeedName,
		Password: SeedPassword,
	})
	if err != nil {
		return err
	}
	bio := "Taking it one breath at a time."
	_, err = s.CreateUserProfile(ctx, user.ID, model.ProfileInput{
		Bio:         &bio,
		Preferences: model.JSON(`{"theme":"light","notifications":true}`),
	})
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *MemoryStore) GetUserByID(_ context.Context, id uint) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[normalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, input model.CreateUserInput) (*model.User, error) {
	hashed, err := hashPassword(input.Password, s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeEmail(input.Email)
	if _, exists := s.emails[key]; exists {
		return nil, ErrDuplicateEmail
	}

	now := s.now()
	u := &model.User{
		ID:        s.nextUserID,
		Email:     key,
		Name:      input.Name,
		Password:  hashed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextUserID++
	s.users[u.ID] = u
	s.emails[key] = u.ID

	cp := *u
	return &cp, nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, id uint, input model.UpdateUserInput) (*model.User, error) {
	var hashed string
	if input.Password != nil {
		h, err := hashPassword(*input.Password, s.cost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hashed = h
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}

	if input.Email != nil {
		key := normalizeEmail(*input.Email)
		if owner, taken := s.emails[key]; taken && owner != id {
			return nil, ErrDuplicateEmail
		}
		delete(s.emails, normalizeEmail(u.Email))
		s.emails[key] = id
		u.Email = key
	}
	if input.Name != nil {
		u.Name = *input.Name
	}
	if input.Password != nil {
		u.Password = hashed
	}
	u.UpdatedAt = s.now()

	cp := *u
	return &cp, nil
}

// DeleteUser removes the user together with everything recorded for it.
func (s *MemoryStore) DeleteUser(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	delete(s.emails, normalizeEmail(u.Email))
	delete(s.users, id)
	delete(s.profiles, id)
	delete(s.moods, id)
	delete(s.habits, id)
	delete(s.thanks, id)
	return nil
}

func (s *MemoryStore) GetUserProfile(_ context.Context, userID uint) (*model.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile for user %d: %w", userID, ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *MemoryStore) CreateUserProfile(_ context.Context, userID uint, input model.ProfileInput) (*model.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if _, exists := s.profiles[userID]; exists {
		return nil, ErrProfileExists
	}

	now := s.now()
	p := &model.UserProfile{
		ID:        s.nextProfileID,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	input.Apply(p)
	s.nextProfileID++
	s.profiles[userID] = p

	return p.Clone(), nil
}

func (s *MemoryStore) UpdateUserProfile(_ context.Context, userID uint, input model.ProfileInput) (*model.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile for user %d: %w", userID, ErrNotFound)
	}
	input.Apply(p)
	p.UpdatedAt = s.now()

	return p.Clone(), nil
}

func (s *MemoryStore) GetUserWithProfile(_ context.Context, userID uint) (*model.UserWithProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	user := *u
	result := &model.UserWithProfile{User: &user}
	if p, ok := s.profiles[userID]; ok {
		result.Profile = p.Clone()
	}
	return result, nil
}

func (s *MemoryStore) AuthenticateUser(_ context.Context, email, password string) (*model.User, error) {
	s.mu.RLock()
	var hash string
	var found *model.User
	if id, ok := s.emails[normalizeEmail(email)]; ok {
		cp := *s.users[id]
		found = &cp
		hash = cp.Password
	}
	s.mu.RUnlock()

	if !verifyPassword(hash, s.decoy, password) || found == nil {
		return nil, ErrInvalidCredentials
	}
	return found, nil
}

func (s *MemoryStore) CreateMoodEntry(_ context.Context, userID uint, input model.MoodInput) (*model.MoodEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	now := s.now()
	entry := input.Entry(userID, now)
	entry.ID = s.nextMoodID
	entry.CreatedAt = now
	s.nextMoodID++
	s.moods[userID] = append(s.moods[userID], &entry)

	cp := entry.Clone()
	return &cp, nil
}

// ListMoodEntries returns the newest entries first.
func (s *MemoryStore) ListMoodEntries(_ context.Context, userID uint, limit int) ([]model.MoodEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.users[userID]; !ok {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	entries := make([]model.MoodEntry, 0, len(s.moods[userID]))
	for _, e := range s.moods[userID] {
		entries = append(entries, e.Clone())
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if n := listLimit(limit); len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

func (s *MemoryStore) CreateHabit(_ context.Context, userID uint, input model.HabitInput) (*model.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	now := s.now()
	habit := input.Habit(userID, now)
	habit.ID = s.nextHabitID
	habit.CreatedAt = now
	s.nextHabitID++
	s.habits[userID] = append(s.habits[userID], &habit)

	cp := habit
	return &cp, nil
}

// ListHabits returns the user's habits for date in creation order.
func (s *MemoryStore) ListHabits(_ context.Context, userID uint, date string) ([]model.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.users[userID]; !ok {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	habits := []model.Habit{}
	for _, h := range s.habits[userID] {
		if h.Date == date {
			habits = append(habits, *h)
		}
	}
	return habits, nil
}

// SetHabitCompleted only touches habits owned by userID.
func (s *MemoryStore) SetHabitCompleted(_ context.Context, userID, habitID uint, completed bool) (*model.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range s.habits[userID] {
		if h.ID == habitID {
			h.Completed = completed
			cp := *h
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("habit %d of user %d: %w", habitID, userID, ErrNotFound)
}

func (s *MemoryStore) CreateGratitudeEntry(_ context.Context, userID uint, input model.GratitudeInput) (*model.GratitudeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	now := s.now()
	entry := input.Entry(userID, now)
	entry.ID = s.nextGratitudeID
	entry.CreatedAt = now
	s.nextGratitudeID++
	s.thanks[userID] = append(s.thanks[userID], &entry)

	cp := entry.Clone()
	return &cp, nil
}

// ListGratitudeEntries returns the newest entries first.
func (s *MemoryStore) ListGratitudeEntries(_ context.Context, userID uint, limit int) ([]model.GratitudeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.users[userID]; !ok {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	entries := make([]model.GratitudeEntry, 0, len(s.thanks[userID]))
	for _, e := range s.thanks[userID] {
		entries = append(entries, e.Clone())
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if n := listLimit(limit); len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close drops all data held by the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = make(map[uint]*model.User)
	s.emails = make(map[string]uint)
	s.profiles = make(map[uint]*model.UserProfile)
	s.moods = make(map[uint][]*model.MoodEntry)
	s.habits = make(map[uint][]*model.Habit)
	s.thanks = make(map[uint][]*model.GratitudeEntry)
	return nil
}
