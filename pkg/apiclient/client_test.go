package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"wellness-service/internal/handler"
	"wellness-service/internal/model"
	"wellness-service/internal/routes"
	"wellness-service/internal/storage"
	"wellness-service/pkg/jwtutil"
)

func newAPI(t *testing.T, authRequired bool) *Client {
	t.Helper()
	store, err := storage.NewMemoryStore(storage.WithMemoryBcryptCost(bcrypt.MinCost), storage.WithoutSeed())
	require.NoError(t, err)
	tokens := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "client-key", ExpirationHours: 1})

	e := echo.New()
	routes.Setup(e, handler.New(store, tokens), tokens, zap.NewNop(), routes.Options{AuthRequired: authRequired})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	cli, err := New(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return cli
}

func strPtr(s string) *string { return &s }

func TestNewNormalizesBaseURL(t *testing.T) {
	cli, err := New("localhost:5000/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", cli.baseURL)

	cli, err = New("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", cli.baseURL)
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	cli := newAPI(t, true)

	reg, err := cli.Register(ctx, model.CreateUserInput{Email: "lee@example.com", Password: "secret123", Name: "Lee"})
	require.NoError(t, err)
	assert.Equal(t, reg.Token, cli.Token())
	id := reg.User.ID

	_, err = cli.Login(ctx, "lee@example.com", "secret123")
	require.NoError(t, err)

	user, err := cli.UpdateUser(ctx, id, model.UpdateUserInput{Name: strPtr("Lee Park")})
	require.NoError(t, err)
	assert.Equal(t, "Lee Park", user.Name)

	profile, err := cli.EnsureProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, profile.UserID)

	// second call finds the existing profile
	again, err := cli.EnsureProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, again.ID)

	_, err = cli.UpdateProfile(ctx, id, model.ProfileInput{Bio: strPtr("breathing")})
	require.NoError(t, err)

	complete, err := cli.GetComplete(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, complete.Profile)
	assert.Equal(t, "breathing", *complete.Profile.Bio)
	assert.Equal(t, "Lee Park", complete.User.Name)

	_, err = cli.CreateMood(ctx, id, model.MoodInput{Mood: 4, Date: strPtr("2026-10-01")})
	require.NoError(t, err)
	moods, err := cli.ListMoods(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, moods, 1)
	assert.Equal(t, 4, moods[0].Mood)

	habit, err := cli.CreateHabit(ctx, id, model.HabitInput{Name: "Walk", Date: strPtr("2026-10-01")})
	require.NoError(t, err)
	_, err = cli.SetHabitCompleted(ctx, id, habit.ID, true)
	require.NoError(t, err)
	habits, err := cli.ListHabits(ctx, id, "2026-10-01")
	require.NoError(t, err)
	require.Len(t, habits, 1)
	assert.True(t, habits[0].Completed)

	_, err = cli.CreateGratitude(ctx, id, model.GratitudeInput{Entries: []string{"coffee", "rain"}})
	require.NoError(t, err)
	thanks, err := cli.ListGratitude(ctx, id, 5)
	require.NoError(t, err)
	require.Len(t, thanks, 1)
	assert.Equal(t, model.StringList{"coffee", "rain"}, thanks[0].Entries)

	require.NoError(t, cli.DeleteUser(ctx, id))
	_, err = cli.GetUser(ctx, id)
	require.Error(t, err)
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()
	cli := newAPI(t, false)

	_, err := cli.Login(ctx, "ghost@example.com", "whatever")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid credentials", apiErr.Message)
	assert.Empty(t, cli.Token())

	_, err = cli.Register(ctx, model.CreateUserInput{Email: "bad", Password: "1", Name: ""})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.NotEmpty(t, apiErr.Fields)

	_, err = cli.GetProfile(ctx, 77)
	assert.True(t, IsNotFound(err))

	_, err = cli.Chat(ctx, ChatMessage{Message: "hello"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)

	require.NoError(t, cli.Health(ctx))
}

func TestExtractErrorPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	cli, err := New(srv.URL)
	require.NoError(t, err)
	err = cli.Health(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream exploded", apiErr.Message)
}
