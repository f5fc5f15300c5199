package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		code     string
		category Category
		severity Severity
		retry    bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{ErrCodeStoreUnavailable, CategoryStore, SeverityFatal, false},
		{ErrCodeCorruptIndex, CategoryStore, SeverityFatal, false},
		{ErrCodeEmbeddingFailed, CategoryNetwork, SeverityWarning, true},
		{ErrCodeNetworkTimeout, CategoryNetwork, SeverityWarning, true},
		{ErrCodeMalformedInput, CategoryValidation, SeverityError, false},
		{ErrCodePartialBatch, CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retry, err.Retryable)
		})
	}
}

func TestErrorFormatIncludesCode(t *testing.T) {
	err := MalformedInput("document id is empty")
	assert.Equal(t, "[ERR_401_MALFORMED_INPUT] document id is empty", err.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk on fire")
	err := Wrap(ErrCodeStoreUnavailable, cause)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeStoreUnavailable, GetCode(err))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("doc missing"))
	assert.True(t, errors.Is(err, New(ErrCodeNotFound, "", nil)))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(errors.New("plain")))
}

func TestPartialBatchDetails(t *testing.T) {
	err := PartialBatch(200, 350, errors.New("embed down"))
	assert.Equal(t, "200", err.Details["persisted"])
	assert.Equal(t, "350", err.Details["total"])
	assert.Contains(t, err.Message, "200 of 350")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(EmbeddingFailed("timeout", nil)))
	assert.False(t, IsRetryable(MalformedInput("bad")))
	assert.False(t, IsRetryable(nil))
}
