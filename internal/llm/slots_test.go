package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeSlots(t *testing.T) {
	t.Run("counts slots", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/slots", r.URL.Path)
			_, _ = io.WriteString(w, `[{"id":0},{"id":1},{"id":2},{"id":3}]`)
		}))
		defer srv.Close()

		n, err := ProbeSlots(context.Background(), srv.Client(), srv.URL+"/v1/")
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = io.WriteString(w, `[{"id":0}]`)
		}))
		defer srv.Close()

		n, err := ProbeSlots(context.Background(), srv.Client(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("not found is final", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := ProbeSlots(context.Background(), srv.Client(), srv.URL)
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestIsLocalURL(t *testing.T) {
	assert.True(t, IsLocalURL("http://127.0.0.1:8080/v1"))
	assert.True(t, IsLocalURL("http://localhost:5000"))
	assert.True(t, IsLocalURL("http://[::1]:8080"))
	assert.False(t, IsLocalURL("https://api.openai.com/v1"))
	assert.False(t, IsLocalURL("::bad"))
}
