package gradebook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSink(t *testing.T) {
	var got gradeUpdate
	fail := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/grades", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL, "tok", time.Second)
	require.NoError(t, sink.UpdateGrade(context.Background(), 3, 7, 82.5))
	assert.Equal(t, uint(3), got.ActivityID)
	assert.Equal(t, uint(7), got.UserID)
	assert.Equal(t, 82.5, got.Grade)

	fail = true
	assert.Error(t, sink.UpdateGrade(context.Background(), 3, 7, 90))
}

func TestNopSink(t *testing.T) {
	var s Sink = NopSink{}
	assert.NoError(t, s.UpdateGrade(context.Background(), 1, 1, 1))
}
