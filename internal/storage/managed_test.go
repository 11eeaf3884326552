package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wellness-service/internal/model"
	"wellness-service/pkg/authprovider"
)

// fakeProvider records the calls made against a stub GoTrue server.
type fakeProvider struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeProvider) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
}

func newManagedStore(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*ManagedAuthStore, sqlmock.Sqlmock, *fakeProvider) {
	t.Helper()
	fake := &fakeProvider{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.record(r)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	gs, mock := newGormStore(t)
	return NewManagedAuthStore(gs, authprovider.NewClient(srv.URL, "service-key", zap.NewNop())), mock, fake
}

func externalUserRow(id uint, email, externalID string) *sqlmock.Rows {
	return sqlmock.NewRows(userColumns).AddRow(id, email, "Ana", "", externalID, fixedNow, fixedNow)
}

func TestManagedCreateUser(t *testing.T) {
	s, mock, fake := newManagedStore(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"ext-1","email":"ana@example.com"}`))
	})

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))

	user, err := s.CreateUser(context.Background(), model.CreateUserInput{Email: "Ana@example.com", Password: "secret1", Name: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, uint(4), user.ID)
	require.NotNil(t, user.ExternalID)
	assert.Equal(t, "ext-1", *user.ExternalID)
	assert.Empty(t, user.Password)
	assert.Equal(t, []string{"POST /admin/users"}, fake.calls)
}

func TestManagedCreateUserLocalDuplicate(t *testing.T) {
	s, mock, fake := newManagedStore(t, func(w http.ResponseWriter, r *http.Request) {})

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(externalUserRow(4, "ana@example.com", "ext-1"))

	_, err := s.CreateUser(context.Background(), model.CreateUserInput{Email: "ana@example.com", Password: "secret1", Name: "Ana"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Empty(t, fake.calls)
}

func TestManagedCreateUserProviderConflict(t *testing.T) {
	s, mock, _ := newManagedStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"msg":"already registered"}`))
	})

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := s.CreateUser(context.Background(), model.CreateUserInput{Email: "ana@example.com", Password: "secret1", Name: "Ana"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestManagedCreateUserRollsBackProvider(t *testing.T) {
	s, mock, fake := newManagedStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"id":"ext-1","email":"ana@example.com"}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

	_, err := s.CreateUser(context.Background(), model.CreateUserInput{Email: "ana@example.com", Password: "secret1", Name: "Ana"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Equal(t, []string{"POST /admin/users", "DELETE /admin/users/ext-1"}, fake.calls)
}

func TestManagedAuthenticateUser(t *testing.T) {
	s, mock, _ := newManagedStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") != "password" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var body struct {
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "secret1" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok","user":{"id":"ext-1"}}`))
	})

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(externalUserRow(4, "ana@example.com", "ext-1"))

	ctx := context.Background()
	user, err := s.AuthenticateUser(ctx, "ANA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, uint(4), user.ID)

	_, err = s.AuthenticateUser(ctx, "ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestManagedUpdateUserPassword(t *testing.T) {
	s, mock, fake := newManagedStore(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
		WillReturnRows(externalUserRow(4, "ana@example.com", "ext-1"))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
		WillReturnRows(externalUserRow(4, "ana@example.com", "ext-1"))
	mock.ExpectExec(`UPDATE "users" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	password := "newsecret"
	name := "Ana B"
	user, err := s.UpdateUser(context.Background(), 4, model.UpdateUserInput{Password: &password, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ana B", user.Name)
	assert.Empty(t, user.Password)
	assert.Equal(t, []string{"PUT /admin/users/ext-1"}, fake.calls)
}

func TestManagedDeleteUser(t *testing.T) {
	s, mock, fake := newManagedStore(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
		WillReturnRows(externalUserRow(4, "ana@example.com", "ext-1"))
	mock.ExpectExec(`DELETE FROM "users" WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.DeleteUser(context.Background(), 4))
	assert.Equal(t, []string{"DELETE /admin/users/ext-1"}, fake.calls)
}

func TestManagedUpdateUserRestoresProviderEmail(t *testing.T) {
	var emails []string
	var mu sync.Mutex
	s, mock, fake := newManagedStore(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["password"]; ok {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"msg":"unavailable"}`))
			return
		}
		mu.Lock()
		emails = append(emails, body["email"].(string))
		mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	})

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
		WillReturnRows(externalUserRow(4, "ana@example.com", "ext-1"))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns))

	email := "ana.b@example.com"
	password := "newsecret"
	_, err := s.UpdateUser(context.Background(), 4, model.UpdateUserInput{Email: &email, Password: &password})
	require.Error(t, err)
	assert.ErrorContains(t, err, "update provider password")
	assert.Equal(t, []string{"PUT /admin/users/ext-1", "PUT /admin/users/ext-1", "PUT /admin/users/ext-1"}, fake.calls)
	assert.Equal(t, []string{"ana.b@example.com", "ana@example.com"}, emails)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManagedUpdateUserRestoresEmailOnLocalFailure(t *testing.T) {
	var emails []string
	s, mock, _ := newManagedStore(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		emails = append(emails, body["email"].(string))
		_, _ = w.Write([]byte(`{}`))
	})

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
		WillReturnRows(externalUserRow(4, "ana@example.com", "ext-1"))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
		WillReturnRows(externalUserRow(4, "ana@example.com", "ext-1"))
	mock.ExpectExec(`UPDATE "users" SET`).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

	email := "ana.b@example.com"
	_, err := s.UpdateUser(context.Background(), 4, model.UpdateUserInput{Email: &email})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Equal(t, []string{"ana.b@example.com", "ana@example.com"}, emails)
}

func TestManagedRejectsOverlongPassword(t *testing.T) {
	s, _, fake := newManagedStore(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := s.CreateUser(context.Background(), model.CreateUserInput{
		Email: "ana@example.com", Password: strings.Repeat("密", 30), Name: "Ana",
	})
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.Empty(t, fake.calls)
}
