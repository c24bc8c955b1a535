package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFixtureProviderAuthenticates(t *testing.T) {
	provider := NewFixtureProvider()
	require.NoError(t, provider.AddUser("admin@comptoir.fr", "motdepasse1"))

	user, err := provider.Authenticate(context.Background(), "Admin@Comptoir.fr", "motdepasse1")
	require.NoError(t, err)
	require.Equal(t, "admin@comptoir.fr", user.Email)

	_, err = provider.Authenticate(context.Background(), "admin@comptoir.fr", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = provider.Authenticate(context.Background(), "ghost@comptoir.fr", "motdepasse1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMemorySessionStoreLifecycle(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)

	token, err := store.Create(context.Background(), 42)
	require.NoError(t, err)

	userID, err := store.Resolve(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, int64(42), userID)

	require.NoError(t, store.Revoke(context.Background(), token))
	_, err = store.Resolve(context.Background(), token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	store := NewMemorySessionStore(-time.Second)

	token, err := store.Create(context.Background(), 1)
	require.NoError(t, err)
	_, err = store.Resolve(context.Background(), token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRequireAuthMiddleware(t *testing.T) {
	provider := NewFixtureProvider()
	require.NoError(t, provider.AddUser("op@comptoir.fr", "motdepasse1"))
	store := NewMemorySessionStore(time.Minute)
	handler := NewHandler(nil, provider, store)

	token, err := store.Create(context.Background(), 7)
	require.NoError(t, err)

	var seenUser int64
	protected := handler.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(7), seenUser)

	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
