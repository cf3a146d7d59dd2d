package portal_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	portal "github.com/goliatone/go-clinic-portal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientAttachesBearerToken(t *testing.T) {
	api := newFakeAPI(t)

	var gotAuth string
	api.handle("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "u1"})
	})

	client := portal.NewClient(api.URL()).
		WithTokenSource(func(ctx context.Context) string { return "tok-1" })

	var out map[string]string
	require.NoError(t, client.Get(context.Background(), "/auth/me", &out))
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestClientSkipsAuthHeaderWithoutToken(t *testing.T) {
	api := newFakeAPI(t)

	var gotAuth string
	api.handle("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	})

	client := portal.NewClient(api.URL()).
		WithTokenSource(func(ctx context.Context) string { return "" })

	require.NoError(t, client.Get(context.Background(), "/auth/me", nil))
	assert.Empty(t, gotAuth)
}

func TestClientDecodesAPIErrorMessage(t *testing.T) {
	api := newFakeAPI(t)
	api.respond("POST /auth/login", http.StatusUnauthorized, map[string]string{
		"message": "Identifiants invalides",
	})

	client := portal.NewClient(api.URL())

	err := client.Post(context.Background(), "/auth/login", map[string]string{}, nil)
	require.Error(t, err)

	assert.True(t, portal.IsUnauthorized(err))
	assert.False(t, portal.IsNotFound(err))
	assert.Equal(t, "Identifiants invalides", portal.APIMessage(err, "fallback"))
	assert.Contains(t, err.Error(), "401")
}

func TestClientAPIErrorWithoutMessage(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("GET /broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	client := portal.NewClient(api.URL())

	err := client.Get(context.Background(), "/broken", nil)
	require.Error(t, err)
	assert.True(t, portal.IsStatus(err, http.StatusInternalServerError))
	assert.Equal(t, "fallback", portal.APIMessage(err, "fallback"))
}

func TestClientSendsJSONBody(t *testing.T) {
	api := newFakeAPI(t)

	var got map[string]string
	api.handle("PATCH /users/u1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "u1"})
	})

	client := portal.NewClient(api.URL())

	var out map[string]string
	err := client.Patch(context.Background(), "/users/u1",
		map[string]string{"firstName": "Ada"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got["firstName"])
	assert.Equal(t, "u1", out["id"])
}

func TestClientToleratesEmptyBody(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	client := portal.NewClient(api.URL())

	var out map[string]string
	assert.NoError(t, client.Post(context.Background(), "/auth/logout", nil, &out))
}

func TestIsStatusIgnoresPlainErrors(t *testing.T) {
	assert.False(t, portal.IsStatus(assert.AnError, http.StatusNotFound))
	assert.False(t, portal.IsUnauthorized(nil))
}
