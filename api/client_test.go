package api_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-todo-client/api"
)

func newTestClient(t *testing.T, baseURL string) *api.Client {
	t.Helper()
	client, err := api.NewClient(api.ClientConfig{BaseURL: baseURL})
	require.NoError(t, err)
	return client
}

func TestNewClientRejectsNonHTTPBaseURL(t *testing.T) {
	_, err := api.NewClient(api.ClientConfig{BaseURL: "ftp://example.com"})
	require.Error(t, err)
}

func TestDoDecodesSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value":"hello"}`))
	}))
	t.Cleanup(server.Close)

	var out struct {
		Value string `json:"value"`
	}
	client := newTestClient(t, server.URL)
	require.NoError(t, client.Do(context.Background(), http.MethodGet, "/thing", "", nil, &out))
	require.Equal(t, "hello", out.Value)
}

func TestDoSendsJSONBodyAndBearer(t *testing.T) {
	var gotAuth, gotContentType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL)
	payload := map[string]string{"email": "a@b.com"}
	require.NoError(t, client.Do(context.Background(), http.MethodPost, "/auth/signin", "tok-1", payload, nil))
	require.Equal(t, "Bearer tok-1", gotAuth)
	require.Equal(t, "application/json", gotContentType)
	require.JSONEq(t, `{"email":"a@b.com"}`, gotBody)
}

func TestDoOmitsAuthorizationWhenTokenEmpty(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL)
	require.NoError(t, client.Do(context.Background(), http.MethodGet, "/health", "", nil, nil))
	require.Empty(t, gotAuth)
}

func TestErrorMessageExtraction(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{name: "message field", status: http.StatusBadRequest, body: `{"message":"bad input"}`, wantMessage: "bad input"},
		{name: "error field", status: http.StatusConflict, body: `{"error":"already exists"}`, wantMessage: "already exists"},
		{name: "status text fallback", status: http.StatusServiceUnavailable, body: "plain text", wantMessage: "Service Unavailable"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			t.Cleanup(server.Close)

			client := newTestClient(t, server.URL)
			err := client.Do(context.Background(), http.MethodGet, "/thing", "", nil, nil)

			var apiErr *api.Error
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tc.status, apiErr.StatusCode)
			require.Equal(t, tc.wantMessage, apiErr.Message)
			require.Equal(t, tc.status, api.StatusCode(err))
		})
	}
}

func TestTransportFailureWrappedAsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(t, server.URL)
	err := client.Do(context.Background(), http.MethodGet, "/thing", "", nil, nil)
	require.ErrorIs(t, err, api.ErrNetwork)
	require.False(t, api.IsAuthorizationFailure(err))
}

func TestIsAuthorizationFailure(t *testing.T) {
	require.True(t, api.IsAuthorizationFailure(&api.Error{StatusCode: http.StatusUnauthorized, Message: "nope"}))
	require.False(t, api.IsAuthorizationFailure(&api.Error{StatusCode: http.StatusForbidden, Message: "nope"}))
	require.False(t, api.IsAuthorizationFailure(nil))
}
