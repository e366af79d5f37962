package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			"service error marked retryable",
			NewServiceError(ErrorCategoryNetwork, CodeSourceUnavailable, "upstream down", "svc", "op", true, nil),
			true,
		},
		{
			"service error marked permanent",
			NewServiceError(ErrorCategoryValidation, CodeOracleInvalidOutput, "bad payload", "svc", "op", false, nil),
			false,
		},
		{
			"wrapped service error keeps its flag",
			fmt.Errorf("cycle failed: %w",
				NewServiceError(ErrorCategoryNetwork, CodeSourceUnavailable, "upstream down", "svc", "op", true, nil)),
			true,
		},
		{"plain connection error", errors.New("dial tcp: connection refused"), true},
		{"plain timeout error", errors.New("context deadline exceeded: timeout"), true},
		{"plain validation error", errors.New("unexpected token in response"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.err))
		})
	}
}

func TestServiceErrorLogError(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	serviceErr := NewServiceError(
		ErrorCategoryNetwork, CodeSourceUnavailable,
		"schedule fetch failed", "schedule-scraper", "Fetch", true, errors.New("boom"),
	)
	serviceErr.LogError()

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, CodeSourceUnavailable, entry.Data["error_code"])
	assert.Equal(t, ErrorCategoryNetwork, entry.Data["error_category"])
	assert.Equal(t, "schedule-scraper", entry.Data["service_name"])
	assert.Equal(t, true, entry.Data["retryable"])
}
