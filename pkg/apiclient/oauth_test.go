package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOAuthHTTPClient(t *testing.T) {
	var issued atomic.Int32
	reject := atomic.Bool{}
	identity := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		if reject.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		issued.Add(1)
		w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
	}))
	defer identity.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer api.Close()

	cfg := OAuthConfig{TokenURL: identity.URL, ClientID: "lms", ClientSecret: "s3cret", Scopes: []string{"alloy-api"}}

	t.Run("token is fetched once and reused", func(t *testing.T) {
		c := New("alloy", api.URL, NewOAuthHTTPClient(context.Background(), cfg), time.Second)
		require.NoError(t, c.Do(context.Background(), "get_event", http.MethodGet, "/events/1", nil, nil))
		require.NoError(t, c.Do(context.Background(), "get_event", http.MethodGet, "/events/1", nil, nil))
		assert.Equal(t, int32(1), issued.Load())
	})

	t.Run("rejected credentials surface as unauthorized", func(t *testing.T) {
		reject.Store(true)
		c := New("steamfitter", api.URL, NewOAuthHTTPClient(context.Background(), cfg), time.Second)
		err := c.Do(context.Background(), "execute_task", http.MethodPost, "/tasks/1/execute", nil, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnauthorized))
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "invalid_client", apiErr.Message)
	})
}
