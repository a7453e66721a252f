package judge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/submissions", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("wait"))
		assert.Equal(t, "secret", r.Header.Get("X-Auth-Token"))

		var req ExecutionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 71, req.LanguageID)
		assert.Equal(t, "1 2", req.Stdin)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"stdout":"3\n","stderr":null}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "secret"}, nil, zerolog.Nop())
	res, err := c.Execute(context.Background(), ExecutionRequest{SourceCode: "print(3)", LanguageID: 71, Stdin: "1 2"})
	require.NoError(t, err)
	assert.Equal(t, "3\n", res.Stdout)
	assert.Empty(t, res.Stderr)
}

func TestClient_ExecuteNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil, zerolog.Nop())
	_, err := c.Execute(context.Background(), ExecutionRequest{})
	assert.ErrorContains(t, err, "503")
}

func TestClient_ExecuteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, nil, zerolog.Nop())
	_, err := c.Execute(context.Background(), ExecutionRequest{})
	assert.Error(t, err)
}
