package shared

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// NewPooledHTTPClient creates an HTTP client with connection pooling tuned
// for polling a small set of upstream hosts.
func NewPooledHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,

			DisableKeepAlives: false,

			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,

			DisableCompression: false,
		},
	}
}

// SetBrowserLikeHeaders configures HTTP request headers to mimic browser
// behavior. The schedule site rejects obvious bot user agents.
func SetBrowserLikeHeaders(request *http.Request, acceptHeader string) {
	request.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	request.Header.Set("Accept", acceptHeader)
	request.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en;q=0.8")
	request.Header.Set("Cache-Control", "no-cache")
	request.Header.Set("Connection", "keep-alive")
}

// ExecuteHTTPRequestWithRetry executes HTTP requests with exponential backoff
// retry logic. Non-retryable failures (4xx statuses other than 429) abort the
// loop immediately instead of burning the remaining attempts.
func ExecuteHTTPRequestWithRetry(client *http.Client, request *http.Request, maxRetryAttempts int) (*http.Response, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "HTTPClient",
		"method":    "ExecuteHTTPRequestWithRetry",
		"url":       request.URL.String(),
	})

	var httpResponse *http.Response
	var lastExecutionError error
	attemptsMade := 0

	for attemptNumber := 0; attemptNumber <= maxRetryAttempts; attemptNumber++ {
		attemptsMade = attemptNumber + 1
		if attemptNumber > 0 {
			backoffDuration := time.Duration(1<<uint(attemptNumber-1)) * time.Second

			logger.WithFields(logrus.Fields{
				"attempt":          attemptNumber + 1,
				"backoff_duration": backoffDuration,
			}).Debug("Retrying HTTP request after backoff")

			time.Sleep(backoffDuration)
		}

		httpResponse, lastExecutionError = client.Do(request)
		if lastExecutionError == nil && httpResponse.StatusCode == http.StatusOK {
			logger.WithFields(logrus.Fields{
				"attempt":     attemptNumber + 1,
				"status_code": httpResponse.StatusCode,
			}).Debug("HTTP request successful")
			return httpResponse, nil
		}

		if lastExecutionError != nil {
			lastExecutionError = fmt.Errorf("attempt %d failed with network error: %w", attemptNumber+1, lastExecutionError)
			logger.WithError(lastExecutionError).Debug("HTTP request failed with network error")
		} else {
			statusCode := httpResponse.StatusCode
			httpResponse.Body.Close()

			retryable := statusCode >= http.StatusInternalServerError || statusCode == http.StatusTooManyRequests
			lastExecutionError = NewServiceError(
				ErrorCategoryNetwork, CodeSourceUnavailable,
				fmt.Sprintf("attempt %d failed with HTTP %d: %s", attemptNumber+1, statusCode, http.StatusText(statusCode)),
				"http-client", "ExecuteHTTPRequestWithRetry", retryable, nil,
			)
			logger.WithFields(logrus.Fields{
				"attempt":     attemptNumber + 1,
				"status_code": statusCode,
			}).Debug("HTTP request failed with non-200 status")
		}

		if !IsRetryableError(lastExecutionError) {
			break
		}
	}

	logger.WithFields(logrus.Fields{
		"total_attempts": attemptsMade,
		"final_error":    lastExecutionError,
	}).Error("HTTP request failed after all retry attempts")

	return nil, fmt.Errorf("HTTP request failed after %d attempts: %w", attemptsMade, lastExecutionError)
}
