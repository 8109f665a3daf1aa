package apiserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/syssam/crudgen/docstore"
	"github.com/syssam/crudgen/docstore/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	var body map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestServer_Routes(t *testing.T) {
	store := memory.New()
	var mounted docstore.Store
	s := New(Config{Addr: ":0", Name: "Shop"}, store, func(rg *gin.RouterGroup, st docstore.Store) {
		mounted = st
		rg.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"pong": true}) })
	}, nil)
	assert.Same(t, store, mounted)
	assert.Equal(t, "/api", s.Group().BasePath())

	w, body := serve(t, s.Handler(), http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Shop is running", body["message"])

	w, body = serve(t, s.Handler(), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])

	w, body = serve(t, s.Handler(), http.MethodGet, "/api/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["pong"])

	w, _ = serve(t, s.Handler(), http.MethodGet, "/ping")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCors(t *testing.T) {
	s := New(Config{AllowOrigins: []string{"https://app.example.com"}}, memory.New(), nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	s.Handler().ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	open := New(Config{}, memory.New(), nil, nil)
	w, _ = serve(t, open.Handler(), http.MethodGet, "/health")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := New(Config{}, memory.New(), func(rg *gin.RouterGroup, _ docstore.Store) {
		rg.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	}, zap.New(core))

	serve(t, s.Handler(), http.MethodGet, "/health")
	serve(t, s.Handler(), http.MethodGet, "/api/boom")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "request", entries[0].Message)
	assert.Equal(t, "/health", entries[0].ContextMap()["route"])
	assert.Equal(t, "request failed", entries[1].Message)
	assert.Equal(t, int64(http.StatusInternalServerError), entries[1].ContextMap()["status"])
}

func TestServer_Shutdown(t *testing.T) {
	s := New(Config{Addr: "127.0.0.1:0"}, memory.New(), nil, nil)
	done := make(chan error, 1)
	go func() { done <- s.Start() }()
	require.NoError(t, s.Shutdown(context.Background()))
	assert.NoError(t, <-done)
}
