package gqlclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/archbeaver/beaver/config"
	"github.com/archbeaver/beaver/errors"
	"github.com/archbeaver/beaver/metrics"
)

type recordedRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
	RequestID     string                 `json:"-"`
}

// fakeServer answers every request with handle and records what it received
type fakeServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func newFakeServer(t *testing.T, handle func(w http.ResponseWriter, req recordedRequest, n int)) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req recordedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		req.RequestID = r.Header.Get(RequestIDHeader)
		fs.mu.Lock()
		fs.requests = append(fs.requests, req)
		n := len(fs.requests)
		fs.mu.Unlock()
		handle(w, req, n)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) received() []recordedRequest {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]recordedRequest(nil), fs.requests...)
}

func respond(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

type reported struct {
	mu   sync.Mutex
	errs []error
	ops  []string
}

func (r *reported) handle(_ context.Context, op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
	r.errs = append(r.errs, err)
}

func (r *reported) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

func newTestClient(t *testing.T, endpoint string, opts ...Option) (*Client, *metrics.Client) {
	t.Helper()
	m := metrics.NewRegistry().Client
	opts = append([]Option{WithMetrics(m), WithLogger(zaptest.NewLogger(t).Sugar())}, opts...)
	c, err := New(config.ClientConfig{
		Endpoint:       endpoint,
		TimeoutSeconds: 5,
		Retry:          config.RetryConfig{MaxAttempts: 3, InitialBackoffMS: 1, MaxBackoffMS: 5},
	}, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, m
}

const teamsBody = `{"data":{"teams":[{"__typename":"Team","id":"1","name":"payments","description":null}]}}`

func TestQueryIsCachedAfterFirstFetch(t *testing.T) {
	fs := newFakeServer(t, func(w http.ResponseWriter, _ recordedRequest, _ int) {
		respond(w, http.StatusOK, teamsBody)
	})
	c, m := newTestClient(t, fs.URL)
	ctx := context.Background()

	teams, err := c.GetTeams(ctx)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "payments", teams[0].Name)

	teams, err = c.GetTeams(ctx)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Len(t, fs.received(), 1, "second read is served from the cache")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits.WithLabelValues("GetTeams")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMisses.WithLabelValues("GetTeams")))

	_, err = c.GetTeams(ctx, WithFetchPolicy(NetworkOnly))
	require.NoError(t, err)
	assert.Len(t, fs.received(), 2)

	req := fs.received()[0]
	assert.Equal(t, "GetTeams", req.OperationName)
	assert.Contains(t, req.Query, "__typename")
	assert.NotEmpty(t, req.RequestID)
	assert.NotEqual(t, req.RequestID, fs.received()[1].RequestID)
}

func TestCacheOnlyMiss(t *testing.T) {
	fs := newFakeServer(t, func(w http.ResponseWriter, _ recordedRequest, _ int) {
		respond(w, http.StatusOK, teamsBody)
	})
	c, _ := newTestClient(t, fs.URL)

	_, err := c.GetTeams(context.Background(), WithFetchPolicy(CacheOnly))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCacheMiss))
	assert.True(t, errors.IsNotFoundError(err))
	assert.Empty(t, fs.received())
}

func TestQueriesRetryOnServerErrors(t *testing.T) {
	fs := newFakeServer(t, func(w http.ResponseWriter, _ recordedRequest, n int) {
		switch n {
		case 1:
			respond(w, http.StatusTooManyRequests, `{}`)
			return
		case 2:
			respond(w, http.StatusServiceUnavailable, `{}`)
			return
		}
		respond(w, http.StatusOK, teamsBody)
	})
	c, m := newTestClient(t, fs.URL)

	teams, err := c.GetTeams(context.Background())
	require.NoError(t, err)
	assert.Len(t, teams, 1)

	reqs := fs.received()
	require.Len(t, reqs, 3)
	assert.Equal(t, reqs[0].RequestID, reqs[2].RequestID, "retries keep the request id")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Retries))
}

func TestRetriesExhaustedIsTransportError(t *testing.T) {
	fs := newFakeServer(t, func(w http.ResponseWriter, _ recordedRequest, _ int) {
		respond(w, http.StatusBadGateway, `bad gateway`)
	})
	rep := &reported{}
	c, _ := newTestClient(t, fs.URL, WithErrorHandler(rep.handle))

	_, err := c.GetTeams(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsTransportError(err))
	assert.Len(t, fs.received(), 3)
	assert.Equal(t, 1, rep.count(), "reported once after the last attempt")
}

func TestMutationsAreNotRetried(t *testing.T) {
	fs := newFakeServer(t, func(w http.ResponseWriter, _ recordedRequest, _ int) {
		respond(w, http.StatusServiceUnavailable, `{}`)
	})
	rep := &reported{}
	c, _ := newTestClient(t, fs.URL, WithErrorHandler(rep.handle))

	_, err := c.CreateTeam(context.Background(), NamedInput{Name: "platform"})
	require.Error(t, err)
	assert.True(t, errors.IsTransportError(err))
	assert.Len(t, fs.received(), 1)
	assert.Equal(t, []string{"CreateTeam"}, rep.ops)
}

func TestGraphQLErrorsKeepTheirCategory(t *testing.T) {
	fs := newFakeServer(t, func(w http.ResponseWriter, _ recordedRequest, _ int) {
		respond(w, http.StatusOK, `{"data":null,"errors":[{"message":"ADR must have at least one owner","path":["createADR"],"extensions":{"code":"VALIDATION_ERROR"}}]}`)
	})
	rep := &reported{}
	c, m := newTestClient(t, fs.URL, WithErrorHandler(rep.handle))

	_, err := c.CreateADR(context.Background(), ADRInput{Title: "x", Participants: []ParticipantInput{{UserID: "1", Role: RoleReviewer}}})
	require.Error(t, err)
	assert.Equal(t, "ADR must have at least one owner", err.Error())
	assert.True(t, errors.IsValidationError(err))

	var respErr *ResponseError
	require.True(t, errors.As(err, &respErr))
	assert.Equal(t, "CreateADR", respErr.Operation)
	assert.Equal(t, []interface{}{"createADR"}, respErr.Errors[0].Path)

	assert.Equal(t, 1, rep.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("CreateADR", "graphql_error")))
	assert.Len(t, fs.received(), 1, "GraphQL errors are not retried")
}

func TestBadRequestWithErrorsBody(t *testing.T) {
	fs := newFakeServer(t, func(w http.ResponseWriter, _ recordedRequest, _ int) {
		respond(w, http.StatusBadRequest, `{"errors":[{"message":"query is required","extensions":{"code":"INVALID_INPUT"}}]}`)
	})
	c, _ := newTestClient(t, fs.URL)

	_, err := c.GetUsers(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
	assert.Len(t, fs.received(), 1)
}

func TestConcurrentQueriesAreCoalesced(t *testing.T) {
	arrived := make(chan struct{}, 10)
	release := make(chan struct{})
	fs := newFakeServer(t, func(w http.ResponseWriter, _ recordedRequest, _ int) {
		arrived <- struct{}{}
		<-release
		respond(w, http.StatusOK, teamsBody)
	})
	c, _ := newTestClient(t, fs.URL)

	const callers = 5
	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.GetTeams(context.Background(), WithFetchPolicy(NetworkOnly)); err != nil {
				failures.Add(1)
			}
		}()
	}

	<-arrived
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Zero(t, failures.Load())
	assert.Len(t, fs.received(), 1)
}

func TestMutationUpdatesCacheAndRefetches(t *testing.T) {
	var teamsCalls atomic.Int32
	fs := newFakeServer(t, func(w http.ResponseWriter, req recordedRequest, _ int) {
		switch req.OperationName {
		case "GetTeams":
			if teamsCalls.Add(1) == 1 {
				respond(w, http.StatusOK, teamsBody)
				return
			}
			respond(w, http.StatusOK, `{"data":{"teams":[
				{"__typename":"Team","id":"1","name":"payments","description":null},
				{"__typename":"Team","id":"2","name":"platform","description":null}]}}`)
		case "CreateTeam":
			respond(w, http.StatusOK, `{"data":{"createTeam":{"__typename":"Team","id":"2","name":"platform","description":null}}}`)
		default:
			respond(w, http.StatusBadRequest, `{}`)
		}
	})
	c, _ := newTestClient(t, fs.URL)
	ctx := context.Background()

	_, err := c.GetTeams(ctx)
	require.NoError(t, err)

	team, err := c.CreateTeam(ctx, NamedInput{Name: "platform"})
	require.NoError(t, err)
	assert.Equal(t, "2", team.ID)

	_, ok := c.Cache().Entity(TypeTeam, "2")
	assert.True(t, ok, "mutation payload is normalized")

	teams, err := c.GetTeams(ctx, WithFetchPolicy(CacheOnly))
	require.NoError(t, err)
	assert.Len(t, teams, 2, "GetTeams was refetched after the mutation")
	assert.Equal(t, int32(2), teamsCalls.Load())

	create := fs.received()[1]
	assert.Equal(t, map[string]interface{}{"name": "platform"}, create.Variables["input"])
}

func TestDeleteEvictsEntity(t *testing.T) {
	fs := newFakeServer(t, func(w http.ResponseWriter, req recordedRequest, _ int) {
		switch req.OperationName {
		case "GetComponent":
			respond(w, http.StatusOK, `{"data":{"component":{"__typename":"Component","id":"5","name":"billing","description":null,
				"status":"ACTIVE","tags":[],"categoryId":null,"teamId":null,"createdAt":"2026-01-01T00:00:00Z","updatedAt":"2026-01-01T00:00:00Z"}}}`)
		case "DeleteComponent":
			respond(w, http.StatusOK, `{"data":{"deleteComponent":true}}`)
		default:
			respond(w, http.StatusOK, `{"data":{"components":[]}}`)
		}
	})
	c, _ := newTestClient(t, fs.URL)
	ctx := context.Background()

	comp, err := c.GetComponent(ctx, ShapeList, "5")
	require.NoError(t, err)
	assert.Equal(t, "billing", comp.Name)
	assert.Equal(t, StatusActive, comp.Status)

	ok, err := c.DeleteComponent(ctx, "5")
	require.NoError(t, err)
	assert.True(t, ok)

	_, cached := c.Cache().Entity(TypeComponent, "5")
	assert.False(t, cached)
	_, err = c.GetComponent(ctx, ShapeList, "5", WithFetchPolicy(CacheOnly))
	assert.True(t, errors.Is(err, ErrCacheMiss))
}

func TestOptimizedQuerySendsShapeVariables(t *testing.T) {
	fs := newFakeServer(t, func(w http.ResponseWriter, _ recordedRequest, _ int) {
		respond(w, http.StatusOK, `{"data":{"components":[]}}`)
	})
	c, _ := newTestClient(t, fs.URL)
	ctx := context.Background()

	_, err := c.GetComponents(ctx, ShapeList, &ComponentFilter{Status: StatusActive})
	require.NoError(t, err)
	_, err = c.GetComponents(ctx, ShapeDetail, &ComponentFilter{Status: StatusActive})
	require.NoError(t, err)

	reqs := fs.received()
	require.Len(t, reqs, 2, "list and detail results are cached separately")
	for _, k := range OptimizationKeys {
		assert.Equal(t, false, reqs[0].Variables[k])
		assert.Equal(t, true, reqs[1].Variables[k])
	}
	assert.Equal(t, map[string]interface{}{"status": "ACTIVE"}, reqs[0].Variables["filter"])
	assert.True(t, strings.Contains(reqs[0].Query, "@include(if: $includeInstances)"))
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New(config.ClientConfig{})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestSharedHTTPClientKeepsItsTimeout(t *testing.T) {
	fs := newFakeServer(t, func(w http.ResponseWriter, _ recordedRequest, _ int) {
		respond(w, http.StatusOK, teamsBody)
	})
	shared := &http.Client{Timeout: 2 * time.Minute}
	c, err := New(config.ClientConfig{Endpoint: fs.URL, TimeoutSeconds: 1}, WithHTTPClient(shared))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.GetTeams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, shared.Timeout)
	assert.Equal(t, time.Second, c.transport.http.Timeout)
	assert.NotSame(t, shared, c.transport.http)
}

func TestRateLimitedClientStillCompletes(t *testing.T) {
	fs := newFakeServer(t, func(w http.ResponseWriter, _ recordedRequest, _ int) {
		respond(w, http.StatusOK, teamsBody)
	})
	c, err := New(config.ClientConfig{Endpoint: fs.URL, RateLimitPerSecond: 100})
	require.NoError(t, err)
	defer c.Close()
	require.NotNil(t, c.transport.limiter)

	for i := 0; i < 3; i++ {
		_, err := c.GetTeams(context.Background(), WithFetchPolicy(NetworkOnly))
		require.NoError(t, err)
	}
	assert.Len(t, fs.received(), 3)
}
