package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across Beaver.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRequestID = "request_id"
	FieldClientID  = "client_id"

	// Components
	FieldComponent = "component"
	FieldService   = "service"

	// Operations
	FieldOperation = "operation"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldQuery     = "query"
	FieldAttempt   = "attempt"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError     = "error"
	FieldErrorCode = "error_code"

	// Counts and sizes
	FieldCount      = "count"
	FieldTotalCount = "total_count"
	FieldNodes      = "nodes"
	FieldLinks      = "links"

	// Status
	FieldStatus = "status"

	// Network
	FieldAddress = "address"
	FieldPort    = "port"

	// Catalog
	FieldEntity   = "entity"
	FieldEntityID = "entity_id"
	FieldAction   = "action"
)

type contextKey string

const (
	requestIDKey contextKey = "logger_request_id"
	operationKey contextKey = "logger_operation"
)

// WithRequestID adds a request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request ID stored by WithRequestID, if any
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithOperation adds a GraphQL operation name to the context for logging
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey, operation)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, FieldRequestID, requestID)
	}
	if op, ok := ctx.Value(operationKey).(string); ok && op != "" {
		fields = append(fields, FieldOperation, op)
	}

	return fields
}

// LoggerFromContext returns a logger with fields extracted from context.
func LoggerFromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	s := &Server{logger: logger.ComponentLogger("gqlserver")}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
