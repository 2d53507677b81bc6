package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eaglebank/account-registry/shared/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	gatewaySecret = "gateway-test-secret"
	gatewayCaller = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
)

type echoed struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Path    string `json:"path"`
	Query   string `json:"query"`
	Auth    string `json:"auth"`
	Body    string `json:"body"`
}

func newEchoUpstream(t *testing.T, service string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTeapot)
		_ = json.NewEncoder(w).Encode(echoed{
			Service: service,
			Method:  r.Method,
			Path:    r.URL.Path,
			Query:   r.URL.RawQuery,
			Auth:    r.Header.Get("Authorization"),
			Body:    buf.String(),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func gatewayToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		Address: gatewayCaller,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(gatewaySecret))
	require.NoError(t, err)
	return signed
}

func newGateway(t *testing.T, authURL, registryURL string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.MustInitJWTSecret(gatewaySecret)
	r := gin.New()
	registerRoutes(r, &http.Client{Timeout: 5 * time.Second}, authURL, registryURL)
	return r
}

func TestGatewayProxiesAuthWithoutToken(t *testing.T) {
	auth := newEchoUpstream(t, "auth")
	registry := newEchoUpstream(t, "registry")
	r := newGateway(t, auth.URL, registry.URL)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/challenge", strings.NewReader(`{"address":"`+gatewayCaller+`"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusTeapot, w.Code)
	var got echoed
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "auth", got.Service)
	assert.Equal(t, "/v1/auth/challenge", got.Path)
	assert.Contains(t, got.Body, gatewayCaller)
	assert.Empty(t, got.Auth)
}

func TestGatewayRegistryRequiresToken(t *testing.T) {
	auth := newEchoUpstream(t, "auth")
	registry := newEchoUpstream(t, "registry")
	r := newGateway(t, auth.URL, registry.URL)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/registry/size", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGatewayForwardsTokenAndQuery(t *testing.T) {
	auth := newEchoUpstream(t, "auth")
	registry := newEchoUpstream(t, "registry")
	r := newGateway(t, auth.URL, registry.URL)

	req := httptest.NewRequest(http.MethodGet, "/v1/registry/accounts?offset=1&limit=2", nil)
	token := gatewayToken(t)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusTeapot, w.Code)
	var got echoed
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "registry", got.Service)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "offset=1&limit=2", got.Query)
	assert.Equal(t, "Bearer "+token, got.Auth)
}

func TestGatewayUpstreamDown(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	r := newGateway(t, deadURL, deadURL)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
