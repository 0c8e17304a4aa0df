package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightslm/insightslm/app/core"
	v1 "github.com/insightslm/insightslm/app/logic/v1"
	"github.com/insightslm/insightslm/app/response"
	"github.com/insightslm/insightslm/pkg/auth"
	"github.com/insightslm/insightslm/pkg/plugins"
	"github.com/insightslm/insightslm/pkg/security"
)

const (
	testSecret  = "middleware-secret"
	webhookAuth = "workflow-secret"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestCore(t *testing.T) *core.Core {
	t.Helper()
	cfg, err := core.ParseConfig(nil)
	require.NoError(t, err)
	cfg.Auth.JWTSecret = testSecret
	cfg.Webhook.Auth = webhookAuth

	app := core.NewCore(cfg)
	app.InstallPlugins(plugins.NewSelfHostPlugin())
	return app
}

func token(t *testing.T, user string) string {
	t.Helper()
	raw, err := security.GenerateJWT(security.NewTokenClaims(user, "", "", time.Hour), []byte(testSecret))
	require.NoError(t, err)
	return raw
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(I18n(), response.NewResponse(), Cors)
	r.Use(handlers...)
	r.Any("/", func(c *gin.Context) {
		claims, _ := v1.InjectTokenClaim(c)
		c.JSON(http.StatusOK, gin.H{"user": claims.User, "caller": c.GetString(FUNCTION_CALLER_KEY)})
	})
	return r
}

func do(r http.Handler, method, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/", nil)
	if header != "" {
		req.Header.Set(AUTH_TOKEN_HEADER_KEY, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthorization(t *testing.T) {
	app := newTestCore(t)
	r := newEngine(Authorization(app))

	revokedToken := token(t, "user-2")
	require.NoError(t, auth.Revoke(context.Background(), app.Cache(), revokedToken, time.Now().Add(time.Hour)))

	tests := []struct {
		name   string
		header string
		status int
		user   string
	}{
		{"missing", "", http.StatusUnauthorized, ""},
		{"garbage", "Bearer nope", http.StatusUnauthorized, ""},
		{"valid", "Bearer " + token(t, "user-1"), http.StatusOK, "user-1"},
		{"without prefix", token(t, "user-3"), http.StatusOK, "user-3"},
		{"revoked", "Bearer " + revokedToken, http.StatusUnauthorized, ""},
		{"webhook secret is not a user", webhookAuth, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodGet, tt.header)
			assert.Equal(t, tt.status, w.Code)
			if tt.user != "" {
				var body map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.user, body["user"])
			}
		})
	}
}

func TestFunctionAuth(t *testing.T) {
	app := newTestCore(t)
	r := newEngine(FunctionAuth(app))

	tests := []struct {
		name   string
		header string
		status int
		caller string
	}{
		{"webhook secret", webhookAuth, http.StatusOK, "webhook"},
		{"webhook bearer", "Bearer " + webhookAuth, http.StatusOK, "webhook"},
		{"user token", "Bearer " + token(t, "user-1"), http.StatusOK, "user"},
		{"missing", "", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, tt.header)
			assert.Equal(t, tt.status, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.caller, body["caller"])
			} else {
				assert.Equal(t, "Unauthorized", body["error"])
			}
		})
	}
}

func TestCorsPreflight(t *testing.T) {
	r := newEngine(Authorization(newTestCore(t)))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestUseLimit(t *testing.T) {
	app := newTestCore(t)
	r := newEngine(UseLimit(app, "test", func(c *gin.Context) string { return "k" }, core.WithLimit(1), core.WithRange(time.Hour)))

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodGet, "").Code)
}
