package authprovider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "service-key", zap.NewNop())
}

func TestCreateUserSendsServiceKey(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/admin/users", r.URL.Path)
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ana@example.com", body["email"])
		assert.Equal(t, true, body["email_confirm"])
		assert.Equal(t, map[string]interface{}{"name": "Ana"}, body["user_metadata"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"8d1c","email":"ana@example.com"}`))
	})

	user, err := client.CreateUser(context.Background(), "ana@example.com", "secret1", "Ana")
	require.NoError(t, err)
	assert.Equal(t, "8d1c", user.ID)
	assert.Equal(t, "ana@example.com", user.Email)
}

func TestCreateUserProviderError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"msg":"A user with this email address has already been registered"}`))
	})

	_, err := client.CreateUser(context.Background(), "ana@example.com", "secret1", "Ana")
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusUnprocessableEntity, perr.StatusCode)
	assert.Contains(t, perr.Message, "already been registered")
}

func TestSignInWithPassword(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret1" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600,"user":{"id":"8d1c","email":"ana@example.com"}}`))
	})

	session, err := client.SignInWithPassword(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "tok", session.AccessToken)
	assert.Equal(t, "8d1c", session.User.ID)

	_, err = client.SignInWithPassword(context.Background(), "ana@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidLogin)
}

func TestUpdateAndDeleteUser(t *testing.T) {
	var calls []string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodDelete && r.URL.Path == "/admin/users/gone" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"msg":"User not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})

	ctx := context.Background()
	require.NoError(t, client.UpdatePassword(ctx, "8d1c", "newsecret"))
	require.NoError(t, client.UpdateEmail(ctx, "8d1c", "new@example.com"))
	require.NoError(t, client.DeleteUser(ctx, "8d1c"))
	require.NoError(t, client.DeleteUser(ctx, "gone"))

	assert.Equal(t, []string{
		"PUT /admin/users/8d1c",
		"PUT /admin/users/8d1c",
		"DELETE /admin/users/8d1c",
		"DELETE /admin/users/gone",
	}, calls)
}

func TestDeleteUserServerError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	err := client.DeleteUser(context.Background(), "8d1c")
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "boom", perr.Message)
}
