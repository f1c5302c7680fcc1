package gqlserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/99designs/gqlgen/graphql"
	gqlexec "github.com/99designs/gqlgen/graphql/executor"
	"github.com/99designs/gqlgen/graphql/handler/extension"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.uber.org/zap"

	"github.com/archbeaver/beaver/errors"
	"github.com/archbeaver/beaver/logger"
)

// Request is the body of a GraphQL HTTP request
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// FieldResolver resolves one field of an object value
type FieldResolver func(ctx context.Context, obj interface{}, args map[string]interface{}) (interface{}, error)

// Resolvers maps object type name to field name to resolver.
// Fields without a resolver read from map[string]interface{} values.
type Resolvers map[string]map[string]FieldResolver

// Executor is a graphql.ExecutableSchema over the SDL schema and a resolver
// map, run by gqlgen's executor. Fields excluded by @include/@skip are
// never resolved.
type Executor struct {
	schema    *ast.Schema
	resolvers Resolvers
	exec      *gqlexec.Executor
	logger    *zap.SugaredLogger
}

var _ graphql.ExecutableSchema = (*Executor)(nil)

// NewExecutor creates an executor
func NewExecutor(schema *ast.Schema, resolvers Resolvers, log *zap.SugaredLogger) *Executor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	e := &Executor{schema: schema, resolvers: resolvers, logger: log}
	e.exec = gqlexec.New(e)
	e.exec.Use(extension.Introspection{})
	e.exec.SetErrorPresenter(e.presentError)
	e.exec.SetRecoverFunc(e.recover)
	e.exec.AroundOperations(func(ctx context.Context, next graphql.OperationHandler) graphql.ResponseHandler {
		if op := operationName(ctx); op != "" {
			ctx = logger.WithOperation(ctx, op)
		}
		return next(ctx)
	})
	return e
}

// Schema returns the executable schema
func (e *Executor) Schema() *ast.Schema {
	return e.schema
}

// Complexity is not limited
func (e *Executor) Complexity(typeName, fieldName string, childComplexity int, args map[string]interface{}) (int, bool) {
	return 0, false
}

// AroundResponses registers a middleware around every response, including
// request-level errors
func (e *Executor) AroundResponses(f graphql.ResponseMiddleware) {
	e.exec.AroundResponses(f)
}

// Execute runs one request in process
func (e *Executor) Execute(ctx context.Context, req Request) *graphql.Response {
	ctx = graphql.StartOperationTrace(ctx)
	now := graphql.Now()
	rc, errs := e.exec.CreateOperationContext(ctx, &graphql.RawParams{
		Query:         req.Query,
		OperationName: req.OperationName,
		Variables:     req.Variables,
		ReadTime:      graphql.TraceTiming{Start: now, End: now},
	})
	if errs != nil {
		return e.exec.DispatchError(graphql.WithOperationContext(ctx, rc), errs)
	}
	responses, ctx := e.exec.DispatchOperation(ctx, rc)
	return responses(ctx)
}

// Exec implements graphql.ExecutableSchema
func (e *Executor) Exec(ctx context.Context) graphql.ResponseHandler {
	op := graphql.GetOperationContext(ctx).Operation
	var root *ast.Definition
	switch op.Operation {
	case ast.Query:
		root = e.schema.Query
	case ast.Mutation:
		root = e.schema.Mutation
	}
	if root == nil {
		return graphql.OneShot(graphql.ErrorResponse(ctx, "%s operations are not supported", op.Operation))
	}

	done := false
	return func(ctx context.Context) *graphql.Response {
		if done {
			return nil
		}
		done = true
		data, ok := e.executeSelectionSet(ctx, op.SelectionSet, root, nil)
		if !ok {
			return &graphql.Response{Data: json.RawMessage("null")}
		}
		var buf bytes.Buffer
		data.MarshalGQL(&buf)
		return &graphql.Response{Data: buf.Bytes()}
	}
}

// presentError tags every error with its extension code. Errors without a
// cause come from parsing or validation. Internal errors are reported
// without their message.
func (e *Executor) presentError(ctx context.Context, err error) *gqlerror.Error {
	gerr := graphql.DefaultErrorPresenter(ctx, err)
	code := errors.CodeInvalidInput
	cause := gerr.Unwrap()
	if cause != nil {
		code = errors.Code(cause)
	}
	if code == errors.CodeInternal {
		e.logger.Errorw("Resolver failed", append(logger.FieldsFromContext(ctx),
			logger.FieldPath, gerr.Path.String(),
			logger.FieldError, cause,
		)...)
		gerr.Message = "internal server error"
	}
	if gerr.Extensions == nil {
		gerr.Extensions = map[string]interface{}{}
	}
	gerr.Extensions["code"] = code
	if op := operationName(ctx); op != "" {
		gerr.Extensions["operation"] = op
	}
	return gerr
}

func (e *Executor) recover(ctx context.Context, p interface{}) error {
	e.logger.Errorw("Resolver panicked", append(logger.FieldsFromContext(ctx), "panic", p)...)
	return errors.Newf("panic: %v", p)
}

// operationName is the executed operation's name, or "" before one is selected
func operationName(ctx context.Context) string {
	if !graphql.HasOperationContext(ctx) {
		return ""
	}
	rc := graphql.GetOperationContext(ctx)
	if rc.Operation != nil && rc.Operation.Name != "" {
		return rc.Operation.Name
	}
	return rc.OperationName
}

// executeSelectionSet returns false when a non-null field failed and the
// object must become null
func (e *Executor) executeSelectionSet(ctx context.Context, set ast.SelectionSet, def *ast.Definition, obj interface{}) (graphql.Marshaler, bool) {
	fields := graphql.CollectFields(graphql.GetOperationContext(ctx), set, append([]string{def.Name}, def.Interfaces...))
	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		if err := ctx.Err(); err != nil {
			graphql.AddError(ctx, errors.Mark(errors.Wrap(err, "request cancelled"), errors.ErrTimeout))
			return graphql.Null, false
		}
		if field.Name == "__typename" {
			out.Values[i] = graphql.MarshalString(def.Name)
			continue
		}
		v, ok := e.resolveField(ctx, def, obj, field)
		if !ok {
			return graphql.Null, false
		}
		out.Values[i] = v
	}
	return out, true
}

func (e *Executor) resolveField(ctx context.Context, parent *ast.Definition, obj interface{}, field graphql.CollectedField) (graphql.Marshaler, bool) {
	resolver := e.resolvers[parent.Name][field.Name]
	fc := &graphql.FieldContext{
		Object:     parent.Name,
		Field:      field,
		Args:       field.ArgumentMap(graphql.GetOperationContext(ctx).Variables),
		IsMethod:   resolver != nil,
		IsResolver: resolver != nil,
	}
	ctx = graphql.WithFieldContext(ctx, fc)

	fdef := field.Definition
	if fdef == nil {
		fdef = parent.Fields.ForName(field.Name)
	}
	if fdef == nil {
		graphql.AddError(ctx, errors.NewInvalidRequestError("unknown field %s.%s", parent.Name, field.Name))
		return graphql.Null, false
	}

	raw, err := e.resolve(ctx, resolver, obj, field.Name, fc.Args)
	if err != nil {
		graphql.AddError(ctx, err)
		return graphql.Null, !fdef.Type.NonNull
	}
	fc.Result = raw
	return e.completeValue(ctx, fdef.Type, field, raw)
}

func (e *Executor) resolve(ctx context.Context, resolver FieldResolver, obj interface{}, name string, args map[string]interface{}) (raw interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = graphql.GetOperationContext(ctx).Recover(ctx, p)
		}
	}()
	if resolver != nil {
		return resolver(ctx, obj, args)
	}
	m, ok := obj.(map[string]interface{})
	if !ok {
		return nil, errors.Newf("no resolver for %s", name)
	}
	return m[name], nil
}

func (e *Executor) completeValue(ctx context.Context, typ *ast.Type, field graphql.CollectedField, raw interface{}) (graphql.Marshaler, bool) {
	if isNull(raw) {
		if typ.NonNull {
			graphql.AddError(ctx, errors.Newf("cannot return null for non-nullable field %s", graphql.GetPath(ctx)))
			return graphql.Null, false
		}
		return graphql.Null, true
	}
	if typ.Elem != nil {
		return e.completeList(ctx, typ, field, raw)
	}

	def := e.schema.Types[typ.NamedType]
	if def == nil {
		graphql.AddError(ctx, errors.Newf("unknown type %s", typ.NamedType))
		return graphql.Null, !typ.NonNull
	}

	switch def.Kind {
	case ast.Scalar:
		v, err := serializeScalar(def.Name, deref(raw))
		if err != nil {
			graphql.AddError(ctx, err)
			return graphql.Null, !typ.NonNull
		}
		return v, true
	case ast.Enum:
		v := strings.ToUpper(fmt.Sprint(deref(raw)))
		if def.EnumValues.ForName(v) == nil {
			graphql.AddError(ctx, errors.Newf("invalid %s value %q", def.Name, v))
			return graphql.Null, !typ.NonNull
		}
		return graphql.MarshalString(v), true
	case ast.Object:
		v, ok := e.executeSelectionSet(ctx, field.Selections, def, raw)
		if !ok {
			return graphql.Null, !typ.NonNull
		}
		return v, true
	default:
		graphql.AddError(ctx, errors.Newf("abstract type %s is not supported", def.Name))
		return graphql.Null, !typ.NonNull
	}
}

func (e *Executor) completeList(ctx context.Context, typ *ast.Type, field graphql.CollectedField, raw interface{}) (graphql.Marshaler, bool) {
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		graphql.AddError(ctx, errors.Newf("expected a list for %s, got %T", graphql.GetPath(ctx), raw))
		return graphql.Null, !typ.NonNull
	}
	items := make(graphql.Array, rv.Len())
	for i := range items {
		idx := i
		item := rv.Index(i).Interface()
		itemCtx := graphql.WithFieldContext(ctx, &graphql.FieldContext{Index: &idx, Result: item})
		v, ok := e.completeValue(itemCtx, typ.Elem, field, item)
		if !ok {
			return graphql.Null, !typ.NonNull
		}
		items[i] = v
	}
	return items, true
}

func serializeScalar(name string, v interface{}) (graphql.Marshaler, error) {
	switch name {
	case "ID":
		switch id := v.(type) {
		case string:
			return graphql.MarshalID(id), nil
		case int64:
			return graphql.MarshalID(strconv.FormatInt(id, 10)), nil
		case int:
			return graphql.MarshalID(strconv.Itoa(id)), nil
		}
	case "Int":
		switch n := v.(type) {
		case int:
			return graphql.MarshalInt(n), nil
		case int32:
			return graphql.MarshalInt(int(n)), nil
		case int64:
			return graphql.MarshalInt64(n), nil
		}
	case "Float":
		switch n := v.(type) {
		case float64:
			return graphql.MarshalFloat(n), nil
		case float32:
			return graphql.MarshalFloat(float64(n)), nil
		case int:
			return graphql.MarshalFloat(float64(n)), nil
		}
	case "String":
		if s, ok := v.(string); ok {
			return graphql.MarshalString(s), nil
		}
		if s, ok := v.(fmt.Stringer); ok {
			return graphql.MarshalString(s.String()), nil
		}
	case "Boolean":
		if b, ok := v.(bool); ok {
			return graphql.MarshalBoolean(b), nil
		}
	case "DateTime":
		if t, ok := v.(time.Time); ok {
			return graphql.MarshalString(t.UTC().Format(time.RFC3339Nano)), nil
		}
	case "JSON":
		return graphql.MarshalAny(v), nil
	}
	return nil, errors.Newf("cannot serialize %T as %s", v, name)
}

func isNull(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func deref(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.String && rv.Type() != reflect.TypeOf("") {
		return rv.String()
	}
	return rv.Interface()
}
