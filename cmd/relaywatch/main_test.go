package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewPath(t *testing.T) {
	tests := []struct {
		view, id, want string
	}{
		{"feed", "", "/api/feed"},
		{"trending", "", "/api/trending"},
		{"post", "p1", "/api/posts/p1"},
		{"comments", "p1", "/api/posts/p1/comments"},
		{"notifications", "", "/api/notifications/unread"},
		{"conversations", "", "/api/conversations"},
		{"thread", "u2", "/api/conversations/u2"},
		{"profile", "u2", "/api/users/u2/stats"},
	}
	for _, tt := range tests {
		t.Run(tt.view, func(t *testing.T) {
			got, err := viewPath(tt.view, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := viewPath("post", "")
	assert.Error(t, err)
	_, err = viewPath("unknown", "")
	assert.Error(t, err)
}

func TestLiveURL(t *testing.T) {
	u, err := url.Parse(liveURL("localhost:8375", "tok", "thread", "u2"))
	require.NoError(t, err)
	assert.Equal(t, "ws", u.Scheme)
	assert.Equal(t, "/api/live", u.Path)
	assert.Equal(t, "tok", u.Query().Get("token"))
	assert.Equal(t, "thread", u.Query().Get("view"))
	assert.Equal(t, "u2", u.Query().Get("id"))
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[],"stale":false}`))
	}))
	defer srv.Close()

	client := &http.Client{Timeout: time.Second}
	body, err := fetch(context.Background(), client, srv.URL, "tok")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[],"stale":false}`, string(body))

	_, err = fetch(context.Background(), client, srv.URL, "wrong")
	assert.Error(t, err)
}
