package shared

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteHTTPRequestWithRetryStopsOnClientError(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	request, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, err = ExecuteHTTPRequestWithRetry(server.Client(), request, 3)
	require.Error(t, err)

	// A 404 will not get better on retry; only one request goes out.
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))

	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.False(t, serviceErr.Retryable)
	assert.Equal(t, CodeSourceUnavailable, serviceErr.Code)
}

func TestExecuteHTTPRequestWithRetryRecoversFromServerError(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	request, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	response, err := ExecuteHTTPRequestWithRetry(server.Client(), request, 2)
	require.NoError(t, err)
	response.Body.Close()

	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}
