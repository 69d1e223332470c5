package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Jamen1147/socialApp/internal/api"
)

func TestListFollowsCursor(t *testing.T) {
	pages := map[string]api.ListActivitiesResponse{
		"": {
			Items:      []api.ActivityView{{ID: "a1", Title: "First", Date: time.Now().UTC()}},
			NextCursor: "page-2",
		},
		"page-2": {
			Items: []api.ActivityView{{ID: "a2", Title: "Second", Date: time.Now().UTC()}},
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/activities", r.URL.Path)
		page, ok := pages[r.URL.Query().Get("cursor")]
		require.True(t, ok, "unexpected cursor %q", r.URL.Query().Get("cursor"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	c := New(srv.URL)
	activities, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, activities, 2)
	require.Equal(t, "a1", activities[0].ID)
	require.Equal(t, "a2", activities[1].ID)
}

func TestDetailsMissingIsNilNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"type": "not_found", "detail": "activity not found"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	activity, err := c.Details(context.Background(), "missing")
	require.NoError(t, err)
	require.Nil(t, activity)
}

func TestBearerTokenAttached(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetTokenSource(func() string { return "tok-123" })

	require.NoError(t, c.Delete(context.Background(), "a1"))
	require.Equal(t, "Bearer tok-123", got)
}

func TestStatusErrorCarriesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"type": "conflict", "detail": "user is already attending"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	err := c.Attend(context.Background(), "a1")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusConflict, statusErr.StatusCode)
	require.Equal(t, "conflict", statusErr.Type)
}

func TestLoginReturnsAccountAndToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/users/login", r.URL.Path)
		var req api.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "mary@example.com", req.Email)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.UserResponse{
			Username:    "mary",
			DisplayName: "Mary",
			Email:       req.Email,
			Token:       "tok-456",
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	account, token, err := c.Login(context.Background(), "mary@example.com", "secret-pw")
	require.NoError(t, err)
	require.Equal(t, "mary", account.Username)
	require.Equal(t, "tok-456", token)
}
