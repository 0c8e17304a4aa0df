package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightslm/insightslm/pkg/errors"
	"github.com/insightslm/insightslm/pkg/i18n"
)

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ProvideResponseLocalizer(i18n.NewLocalizer("en", "zh-CN")), NewResponse())
	return r
}

func TestAPIError(t *testing.T) {
	r := newEngine()
	r.GET("/custom", func(c *gin.Context) {
		APIError(c, errors.New("Test", i18n.ERROR_NOTEBOOK_NOT_FOUND, nil).Code(http.StatusNotFound))
	})
	r.GET("/wrapped", func(c *gin.Context) {
		APIError(c, fmt.Errorf("outer: %w", errors.New("Test", i18n.ERROR_FORBIDDEN, nil).Code(http.StatusForbidden)))
	})
	r.GET("/plain", func(c *gin.Context) {
		APIError(c, fmt.Errorf("boom"))
	})

	tests := []struct {
		path    string
		lang    string
		status  int
		message string
	}{
		{"/custom", "zh-CN,zh;q=0.9", http.StatusNotFound, "笔记本不存在"},
		{"/custom", "", http.StatusNotFound, "Notebook not found"},
		{"/wrapped", "en", http.StatusForbidden, "Forbidden"},
		{"/plain", "", http.StatusInternalServerError, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.path+tt.lang, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Accept-Language", tt.lang)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			var res Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.Equal(t, tt.message, res.Meta.Message)
			assert.Equal(t, tt.status, res.Meta.Code)
			assert.NotEmpty(t, res.Meta.RequestID)
		})
	}
}

func TestFunctionResponses(t *testing.T) {
	r := newEngine()
	r.POST("/fail", func(c *gin.Context) {
		FunctionError(c, http.StatusInternalServerError, "boom", gin.H{"success": false})
	})
	r.POST("/ok", func(c *gin.Context) {
		FunctionSuccess(c, gin.H{"success": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/fail", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"boom","success":false}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
}
