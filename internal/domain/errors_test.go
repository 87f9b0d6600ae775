package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError_Unwrap(t *testing.T) {
	tests := []struct {
		status       int
		unauthorized bool
		unavailable  bool
	}{
		{400, false, false},
		{401, true, false},
		{403, false, false},
		{422, false, false},
		{500, false, true},
		{503, false, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &APIError{Status: tt.status})
			assert.Equal(t, tt.unauthorized, errors.Is(err, ErrUnauthorized))
			assert.Equal(t, tt.unavailable, errors.Is(err, ErrBackendUnavailable))
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	assert.Equal(t, "backend: 400: Username already registered", (&APIError{Status: 400, Detail: "Username already registered"}).Error())
	assert.Equal(t, "backend: 502", (&APIError{Status: 502}).Error())
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Bad code", UserMessage(fmt.Errorf("verify: %w", &APIError{Status: 400, Detail: "Bad code"}), "fallback"))
	assert.Equal(t, "fallback", UserMessage(&APIError{Status: 500}, "fallback"))
	assert.Equal(t, "fallback", UserMessage(errors.New("dial tcp: refused"), "fallback"))
}

func TestValidationErrors(t *testing.T) {
	var empty ValidationErrors
	assert.NoError(t, empty.Err())

	v := ValidationErrors{}
	v.Add("password", "too short")
	v.Add("password", "second message ignored")
	v.Add("email", "invalid")
	assert.Equal(t, "too short", v["password"])
	assert.EqualError(t, v.Err(), "validation failed: email: invalid; password: too short")
}
