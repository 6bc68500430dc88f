package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-todo-client/api"
)

// stubTokenSource is a minimal TokenSource with scripted refresh behavior.
type stubTokenSource struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
	nextAccess   []string // tokens handed out by successive refreshes
	refreshErr   error
	refreshCalls int
}

func (s *stubTokenSource) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

func (s *stubTokenSource) CanRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken != ""
}

func (s *stubTokenSource) RefreshAccessToken(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshCalls++
	if s.refreshErr != nil {
		s.accessToken = ""
		s.refreshToken = ""
		return s.refreshErr
	}
	if len(s.nextAccess) > 0 {
		s.accessToken = s.nextAccess[0]
		s.nextAccess = s.nextAccess[1:]
	}
	return nil
}

// recordingServer accepts requests bearing wantToken and rejects everything
// else with 401, recording each Authorization header it sees.
type recordingServer struct {
	*httptest.Server
	mu        sync.Mutex
	wantToken string
	headers   []string
}

func newRecordingServer(t *testing.T, wantToken string) *recordingServer {
	t.Helper()
	rs := &recordingServer{wantToken: wantToken}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.mu.Lock()
		rs.headers = append(rs.headers, r.Header.Get("Authorization"))
		accept := rs.wantToken != "" && r.Header.Get("Authorization") == "Bearer "+rs.wantToken
		rs.mu.Unlock()
		if !accept {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *recordingServer) seen() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]string(nil), rs.headers...)
}

func newPipeline(t *testing.T, baseURL string, tokens api.TokenSource) *api.Pipeline {
	t.Helper()
	client, err := api.NewClient(api.ClientConfig{BaseURL: baseURL})
	require.NoError(t, err)
	pipeline, err := api.NewPipeline(client, tokens)
	require.NoError(t, err)
	return pipeline
}

func TestBearerHeaderAttachedToOutboundRequests(t *testing.T) {
	server := newRecordingServer(t, "T1")
	tokens := &stubTokenSource{accessToken: "T1", refreshToken: "R1"}
	pipeline := newPipeline(t, server.URL, tokens)

	require.NoError(t, pipeline.Do(context.Background(), http.MethodGet, "/tasks", nil, nil))
	require.Equal(t, []string{"Bearer T1"}, server.seen())
}

func TestAuthorizationFailureRefreshedAndRetriedOnce(t *testing.T) {
	server := newRecordingServer(t, "T2")
	tokens := &stubTokenSource{accessToken: "T1", refreshToken: "R1", nextAccess: []string{"T2"}}
	pipeline := newPipeline(t, server.URL, tokens)

	require.NoError(t, pipeline.Do(context.Background(), http.MethodGet, "/tasks", nil, nil))
	require.Equal(t, 1, tokens.refreshCalls)
	require.Equal(t, []string{"Bearer T1", "Bearer T2"}, server.seen())
}

func TestRetryResultIsFinalWithNoSecondRefresh(t *testing.T) {
	// The server never accepts any token, so the retry fails with 401 too.
	server := newRecordingServer(t, "")
	tokens := &stubTokenSource{accessToken: "T1", refreshToken: "R1", nextAccess: []string{"T2"}}
	pipeline := newPipeline(t, server.URL, tokens)

	err := pipeline.Do(context.Background(), http.MethodGet, "/tasks", nil, nil)
	require.True(t, api.IsAuthorizationFailure(err))
	require.Equal(t, 1, tokens.refreshCalls)
	require.Len(t, server.seen(), 2)
}

func TestNoRefreshTokenPropagatesErrorWithoutRefresh(t *testing.T) {
	server := newRecordingServer(t, "")
	tokens := &stubTokenSource{accessToken: "T1"}
	pipeline := newPipeline(t, server.URL, tokens)

	err := pipeline.Do(context.Background(), http.MethodGet, "/tasks", nil, nil)
	require.True(t, api.IsAuthorizationFailure(err))
	require.Zero(t, tokens.refreshCalls)
	require.Len(t, server.seen(), 1)
}

func TestNonAuthorizationFailurePropagatesUnchanged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	}))
	t.Cleanup(server.Close)
	tokens := &stubTokenSource{accessToken: "T1", refreshToken: "R1"}
	pipeline := newPipeline(t, server.URL, tokens)

	err := pipeline.Do(context.Background(), http.MethodGet, "/tasks", nil, nil)
	require.Zero(t, tokens.refreshCalls)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	require.Equal(t, "boom", apiErr.Message)
}

func TestRefreshFailurePropagatesWithoutRetry(t *testing.T) {
	server := newRecordingServer(t, "")
	refreshErr := errors.New("refresh rejected")
	tokens := &stubTokenSource{accessToken: "T1", refreshToken: "R1", refreshErr: refreshErr}
	pipeline := newPipeline(t, server.URL, tokens)

	err := pipeline.Do(context.Background(), http.MethodGet, "/tasks", nil, nil)
	require.ErrorIs(t, err, refreshErr)
	require.Len(t, server.seen(), 1)
}

func TestExpiredJWTRefreshedBeforeDispatch(t *testing.T) {
	expired := signedJWT(t, time.Now().Add(-time.Hour))
	server := newRecordingServer(t, "T2")
	tokens := &stubTokenSource{accessToken: expired, refreshToken: "R1", nextAccess: []string{"T2"}}
	pipeline := newPipeline(t, server.URL, tokens)

	require.NoError(t, pipeline.Do(context.Background(), http.MethodGet, "/tasks", nil, nil))
	require.Equal(t, 1, tokens.refreshCalls)
	// The expired token never went over the wire.
	require.Equal(t, []string{"Bearer T2"}, server.seen())
}

func TestLiveJWTDispatchedWithoutRefresh(t *testing.T) {
	live := signedJWT(t, time.Now().Add(time.Hour))
	server := newRecordingServer(t, live)
	tokens := &stubTokenSource{accessToken: live, refreshToken: "R1"}
	pipeline := newPipeline(t, server.URL, tokens)

	require.NoError(t, pipeline.Do(context.Background(), http.MethodGet, "/tasks", nil, nil))
	require.Zero(t, tokens.refreshCalls)
}

func signedJWT(t *testing.T, expiry time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": expiry.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}
