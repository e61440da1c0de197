package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := &Error{Type: ErrorTypeRateLimit, Message: "rate limit exceeded", Code: 429}
	assert.Equal(t, "rate_limit error (code 429): rate limit exceeded", err.Error())

	wrapped := Wrap(ErrorTypeExtractor, stderrors.New("exit status 1"), "yt-dlp failed for %s", "alice")
	assert.Equal(t, "extractor error: yt-dlp failed for alice: exit status 1", wrapped.Error())
}

func TestTypeLookupThroughWrapping(t *testing.T) {
	base := New(ErrorTypeConfig, "unknown username %q", "bob")
	err := fmt.Errorf("profile pass: %w", base)

	assert.True(t, IsType(err, ErrorTypeConfig))
	assert.False(t, IsType(err, ErrorTypeNetwork))
	assert.Equal(t, ErrorTypeConfig, TypeOf(err))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(stderrors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Wrap(ErrorTypeNetwork, cause, "request failed")
	assert.True(t, stderrors.Is(err, cause))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		want      bool
	}{
		{ErrorTypeNetwork, true},
		{ErrorTypeRateLimit, true},
		{ErrorTypeServerError, true},
		{ErrorTypeTimeout, true},
		{ErrorTypeAuth, false},
		{ErrorTypeNotFound, false},
		{ErrorTypeParsing, false},
		{ErrorTypeConfig, false},
		{ErrorTypeExtractor, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errorType), func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.errorType))
		})
	}
}

func TestIsRetryableStatusCode(t *testing.T) {
	assert.True(t, IsRetryableStatusCode(0))
	assert.True(t, IsRetryableStatusCode(429))
	assert.True(t, IsRetryableStatusCode(503))
	assert.False(t, IsRetryableStatusCode(404))
	assert.False(t, IsRetryableStatusCode(403))
	assert.False(t, IsRetryableStatusCode(400))
}
