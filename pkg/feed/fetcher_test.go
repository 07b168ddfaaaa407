package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takutils/inrcot/pkg/config"
)

func TestFetcher_Fetch(t *testing.T) {
	t.Run("plain fetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Authorization"))
			w.Write([]byte(sampleKML))
		}))
		defer server.Close()

		fetcher := NewFetcher(5 * time.Second)
		body, err := fetcher.Fetch(context.Background(), server.URL, nil)
		require.NoError(t, err)
		assert.Equal(t, sampleKML, string(body))
	})

	t.Run("basic auth attached", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "InReach2TAK", user)
			assert.Equal(t, "secret", pass)
			w.Write([]byte("ok"))
		}))
		defer server.Close()

		fetcher := NewFetcher(5 * time.Second)
		auth := &config.BasicAuth{Username: "InReach2TAK", Password: "secret"}
		body, err := fetcher.Fetch(context.Background(), server.URL, auth)
		require.NoError(t, err)
		assert.Equal(t, "ok", string(body))
	})

	t.Run("transient errors retried", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte("recovered"))
		}))
		defer server.Close()

		fetcher := NewFetcher(5 * time.Second)
		fetcher.retryDelay = time.Millisecond
		body, err := fetcher.Fetch(context.Background(), server.URL, nil)
		require.NoError(t, err)
		assert.Equal(t, "recovered", string(body))
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("persistent server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		fetcher := NewFetcher(5 * time.Second)
		fetcher.retryDelay = time.Millisecond
		_, err := fetcher.Fetch(context.Background(), server.URL, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status code: 404")
	})

	t.Run("empty url", func(t *testing.T) {
		fetcher := NewFetcher(5 * time.Second)
		_, err := fetcher.Fetch(context.Background(), "", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "feed has no url")
	})

	t.Run("timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		fetcher := NewFetcher(10 * time.Millisecond)
		fetcher.attempts = 1
		_, err := fetcher.Fetch(context.Background(), server.URL, nil)
		require.Error(t, err)
	})
}
