package gqlserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/google/uuid"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/archbeaver/beaver/errors"
	"github.com/archbeaver/beaver/logger"
)

// RequestIDHeader carries the caller's request id; one is generated when absent
const RequestIDHeader = "X-Request-ID"

// maxBodyBytes bounds a GraphQL request body
const maxBodyBytes = 1 << 20

// GET only runs query operations; mutations must be POSTed
var transports = []graphql.Transport{
	transport.GET{},
	transport.POST{},
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, requestID)

	ctx := logger.WithRequestID(graphql.StartOperationTrace(r.Context()), requestID)
	r = r.WithContext(ctx)
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	}

	for _, t := range transports {
		if t.Supports(r) {
			t.Do(w, r, s.executor.exec)
			return
		}
	}
	status := http.StatusMethodNotAllowed
	if r.Method == http.MethodPost {
		status = http.StatusUnsupportedMediaType
	}
	writeGraphQLError(w, status, errors.NewInvalidRequestError("unsupported %s request", r.Method))
}

// observeResponse records metrics and a debug line for every response
func (s *Server) observeResponse(ctx context.Context, next graphql.ResponseHandler) *graphql.Response {
	resp := next(ctx)
	if resp == nil {
		return nil
	}

	op := operationName(ctx)
	if op == "" {
		op = "anonymous"
	}
	status := "ok"
	if len(resp.Errors) > 0 {
		status = "error"
		for _, e := range resp.Errors {
			code, _ := e.Extensions["code"].(string)
			s.registry.Server.ResolverErrors.WithLabelValues(code).Inc()
		}
	}
	elapsed := time.Since(graphql.GetStartTime(ctx))
	s.registry.Server.Requests.WithLabelValues(op, status).Inc()
	s.registry.Server.RequestDuration.WithLabelValues(op).Observe(elapsed.Seconds())

	s.logger.Debugw("GraphQL request", append(logger.FieldsFromContext(ctx),
		logger.FieldStatus, status,
		logger.FieldDurationMS, elapsed.Milliseconds(),
	)...)
	return resp
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}
	return nil
}

// writeGraphQLError writes a request-level error in GraphQL response form
func writeGraphQLError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, &graphql.Response{Errors: gqlerror.List{{
		Message:    err.Error(),
		Extensions: map[string]interface{}{"code": errors.Code(err)},
	}}})
}
