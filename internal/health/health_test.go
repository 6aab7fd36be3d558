package health

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChecker() *Checker {
	return NewChecker(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestVerifySucceedsOnFirstAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	verified, err := testChecker().Verify(context.Background(), []Probe{
		{Label: "app", URL: srv.URL, Attempts: 3, Delay: time.Millisecond},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, verified)
}

func TestVerifyRetriesUntilHealthy(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	verified, err := testChecker().Verify(context.Background(), []Probe{
		{Label: "app", URL: srv.URL, Attempts: 5, Delay: time.Millisecond},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, verified)
	assert.Equal(t, int32(3), calls.Load())
}

func TestVerifyExhaustsAttemptsWithoutError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	verified, err := testChecker().Verify(context.Background(), []Probe{
		{Label: "app", URL: srv.URL, Attempts: 3, Delay: time.Millisecond},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, verified)
	assert.Equal(t, int32(3), calls.Load(), "exactly Attempts requests expected")
}

func TestVerifyTreatsRedirectFamilyAsUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	verified, err := testChecker().Verify(context.Background(), []Probe{
		{Label: "app", URL: srv.URL, Attempts: 1, Delay: time.Millisecond},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, verified)
}

func TestVerifyStopsOnCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testChecker().Verify(ctx, []Probe{
		{Label: "app", URL: srv.URL, Attempts: 10, Delay: time.Second},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerifyCountsUnreachableEndpointAsUnverified(t *testing.T) {
	verified, err := testChecker().Verify(context.Background(), []Probe{
		{Label: "app", URL: "http://127.0.0.1:1/health", Attempts: 1, Delay: time.Millisecond},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, verified)
}
