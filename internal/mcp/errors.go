// Package mcp exposes the collector service over the Model Context
// Protocol: one stdio server with tools for indexing, search, navigation,
// and status.
package mcp

import (
	"context"
	"errors"
	"fmt"

	cerrors "github.com/relaymesh/collector/internal/errors"
)

// MCP error codes. The -32xxx range follows JSON-RPC conventions; the
// -320xx codes are collector-specific.
const (
	ErrCodeStoreUnavailable = -32001
	ErrCodeEmbeddingFailed  = -32002
	ErrCodeTimeout          = -32003
	ErrCodePartialBatch     = -32004

	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603
)

// MCPError is a protocol-level error with a JSON-RPC style code.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError builds a parameter validation error.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// MapError converts service errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var ce *cerrors.CollectorError
	if errors.As(err, &ce) {
		return mapCollectorError(ce)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

func mapCollectorError(ce *cerrors.CollectorError) *MCPError {
	message := ce.Message
	if ce.Suggestion != "" {
		message = fmt.Sprintf("%s %s", ce.Message, ce.Suggestion)
	}

	switch ce.Code {
	case cerrors.ErrCodeEmbeddingFailed:
		return &MCPError{Code: ErrCodeEmbeddingFailed, Message: message}
	case cerrors.ErrCodeNetworkTimeout:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	case cerrors.ErrCodePartialBatch:
		return &MCPError{Code: ErrCodePartialBatch, Message: message}
	}

	switch ce.Category {
	case cerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case cerrors.CategoryStore:
		return &MCPError{Code: ErrCodeStoreUnavailable, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
