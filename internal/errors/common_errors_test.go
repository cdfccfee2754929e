package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_Constants(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		expected string
	}{
		{"invalid configuration", ErrTypeInvalidConfiguration, "INVALID_CONFIGURATION"},
		{"degenerate input", ErrTypeDegenerateInput, "DEGENERATE_INPUT"},
		{"empty result", ErrTypeEmptyResult, "EMPTY_RESULT"},
		{"parsing", ErrTypeParsing, "PARSING"},
		{"storage", ErrTypeStorage, "STORAGE"},
		{"validation", ErrTypeValidation, "VALIDATION"},
		{"not found", ErrTypeNotFound, "NOT_FOUND"},
		{"config", ErrTypeConfig, "CONFIG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		appError    *AppError
		wantMessage string
	}{
		{
			name:        "error without cause",
			appError:    &AppError{Type: ErrTypeDegenerateInput, Message: "column is constant"},
			wantMessage: "[DEGENERATE_INPUT] column is constant",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeParsing,
				Message: "read close column",
				Cause:   errors.New("bad float"),
			},
			wantMessage: "[PARSING] read close column: bad float",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.appError.Error())
		})
	}
}

func TestAppError_UnwrapAndContext(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStorageError("write report", cause).WithContext("path", "/tmp/x.csv")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "/tmp/x.csv", err.Context["path"])

	var nilCtx AppError
	nilCtx.WithContext("k", 1)
	assert.Equal(t, 1, nilCtx.Context["k"])
}

func TestHelperConstructors(t *testing.T) {
	tests := []struct {
		name    string
		err     *AppError
		errType ErrorType
		message string
	}{
		{"invalid configuration", NewInvalidConfigurationError("stride %d < 1", 0), ErrTypeInvalidConfiguration, "stride 0 < 1"},
		{"degenerate input", NewDegenerateInputError("median is %v", 0.0), ErrTypeDegenerateInput, "median is 0"},
		{"empty result", NewEmptyResultError("no values"), ErrTypeEmptyResult, "no values"},
		{"validation", NewAppValidationError("bad"), ErrTypeValidation, "bad"},
		{"not found", NewNotFoundError("series"), ErrTypeNotFound, "series not found"},
		{"config", NewConfigError("load", nil), ErrTypeConfig, "load"},
		{"parsing", NewParsingError("line 3", nil), ErrTypeParsing, "line 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.errType, tt.err.Type)
			assert.Equal(t, tt.message, tt.err.Message)
			assert.NotNil(t, tt.err.Context)
		})
	}
}

func TestIsTypeThroughWrapping(t *testing.T) {
	base := NewDegenerateInputError("historical median is zero")
	wrapped := fmt.Errorf("mono point: %w", base)
	outer := NewAppError(ErrTypeStorage, "persist", wrapped)

	assert.True(t, IsType(wrapped, ErrTypeDegenerateInput))
	assert.True(t, IsType(outer, ErrTypeDegenerateInput))
	assert.True(t, IsType(outer, ErrTypeStorage))
	assert.False(t, IsType(outer, ErrTypeEmptyResult))
	assert.False(t, IsType(errors.New("plain"), ErrTypeDegenerateInput))
	assert.False(t, IsType(nil, ErrTypeDegenerateInput))

	assert.Equal(t, ErrTypeStorage, TypeOf(outer))
	assert.Equal(t, ErrTypeDegenerateInput, TypeOf(wrapped))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
}
