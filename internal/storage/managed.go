package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"wellness-service/internal/model"
	"wellness-service/pkg/authprovider"
)

// AuthProvider is the part of the managed auth service the store depends on.
// *authprovider.Client satisfies it.
type AuthProvider interface {
	CreateUser(ctx context.Context, email, password, name string) (*authprovider.User, error)
	UpdatePassword(ctx context.Context, id, password string) error
	UpdateEmail(ctx context.Context, id, email string) error
	DeleteUser(ctx context.Context, id string) error
	SignInWithPassword(ctx context.Context, email, password string) (*authprovider.Session, error)
}

// ManagedAuthStore keeps credentials in an external auth provider and the
// rest of the data in Postgres. Local user rows carry the provider id in
// external_id and an empty password.
type ManagedAuthStore struct {
	*GormStore
	provider AuthProvider
}

// NewManagedAuthStore combines a GormStore with a provider client.
func NewManagedAuthStore(db *GormStore, provider AuthProvider) *ManagedAuthStore {
	return &ManagedAuthStore{GormStore: db, provider: provider}
}

func providerConflict(err error) bool {
	var perr *authprovider.Error
	return errors.As(err, &perr) && (perr.StatusCode == http.StatusUnprocessableEntity || perr.StatusCode == http.StatusConflict)
}

// CreateUser registers the account with the provider, then mirrors it
// locally. If the local insert fails the provider account is removed again.
func (s *ManagedAuthStore) CreateUser(ctx context.Context, input model.CreateUserInput) (*model.User, error) {
	if len(input.Password) > model.MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	email := normalizeEmail(input.Email)

	if _, err := s.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	remote, err := s.provider.CreateUser(ctx, email, input.Password, input.Name)
	if err != nil {
		if providerConflict(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create provider user: %w", err)
	}

	externalID := remote.ID
	user, err := s.insertUser(ctx, &model.User{
		Email:      email,
		Name:       input.Name,
		ExternalID: &externalID,
	})
	if err != nil {
		if rerr := s.provider.DeleteUser(ctx, externalID); rerr != nil {
			return nil, errors.Join(err, fmt.Errorf("roll back provider user %s: %w", externalID, rerr))
		}
		return nil, err
	}
	return user, nil
}

// UpdateUser sends email and password changes to the provider before the
// local row is touched. Users without a provider id are updated locally.
// If a later step fails after the provider email changed, the provider email
// is set back to the old one.
func (s *ManagedAuthStore) UpdateUser(ctx context.Context, id uint, input model.UpdateUserInput) (*model.User, error) {
	if input.Password != nil && len(*input.Password) > model.MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.ExternalID == nil {
		return s.GormStore.UpdateUser(ctx, id, input)
	}
	externalID := *user.ExternalID

	changes := map[string]interface{}{}
	emailChanged := false
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email != user.Email {
			owner, err := s.GetUserByEmail(ctx, email)
			if err == nil && owner.ID != id {
				return nil, ErrDuplicateEmail
			}
			if err != nil && !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			if err := s.provider.UpdateEmail(ctx, externalID, email); err != nil {
				if providerConflict(err) {
					return nil, ErrDuplicateEmail
				}
				return nil, fmt.Errorf("update provider email: %w", err)
			}
			emailChanged = true
		}
		changes["email"] = email
	}

	rollback := func(err error) error {
		if !emailChanged {
			return err
		}
		if rerr := s.provider.UpdateEmail(ctx, externalID, user.Email); rerr != nil {
			return errors.Join(err, fmt.Errorf("roll back provider email for %s: %w", externalID, rerr))
		}
		return err
	}

	if input.Password != nil {
		if err := s.provider.UpdatePassword(ctx, externalID, *input.Password); err != nil {
			return nil, rollback(fmt.Errorf("update provider password: %w", err))
		}
	}
	if input.Name != nil {
		changes["name"] = *input.Name
	}
	updated, err := s.applyUserChanges(ctx, id, changes)
	if err != nil {
		return nil, rollback(err)
	}
	return updated, nil
}

// DeleteUser removes the provider account and then the local row.
func (s *ManagedAuthStore) DeleteUser(ctx context.Context, id uint) error {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if user.ExternalID != nil {
		if err := s.provider.DeleteUser(ctx, *user.ExternalID); err != nil {
			return fmt.Errorf("delete provider user: %w", err)
		}
	}
	return s.GormStore.DeleteUser(ctx, id)
}

// AuthenticateUser verifies the password with the provider and returns the
// mirrored local user.
func (s *ManagedAuthStore) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	email = normalizeEmail(email)
	if _, err := s.provider.SignInWithPassword(ctx, email, password); err != nil {
		if errors.Is(err, authprovider.ErrInvalidLogin) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("provider sign in: %w", err)
	}

	user, err := s.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
