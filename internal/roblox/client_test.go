package roblox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveUsername(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/usernames/users", r.URL.Path)

		var req struct {
			Usernames []string `json:"usernames"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Usernames, 1)

		w.Header().Set("Content-Type", "application/json")
		if req.Usernames[0] == "builderman" {
			_, _ = w.Write([]byte(`{"data":[{"id":156,"name":"builderman"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)

	account, err := client.ResolveUsername(context.Background(), "builderman")
	require.NoError(t, err)
	require.NotNil(t, account)
	require.EqualValues(t, 156, account.ID)
	require.Equal(t, "builderman", account.Username)

	account, err = client.ResolveUsername(context.Background(), "nobody-here")
	require.NoError(t, err)
	require.Nil(t, account)
}

func TestResolveUsernameServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	_, err := client.ResolveUsername(context.Background(), "builderman")
	require.Error(t, err)
}
