package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/insightslm/insightslm/app/core"
	v1 "github.com/insightslm/insightslm/app/logic/v1"
	"github.com/insightslm/insightslm/app/response"
	"github.com/insightslm/insightslm/pkg/errors"
	"github.com/insightslm/insightslm/pkg/i18n"
	"github.com/insightslm/insightslm/pkg/security"
	"github.com/insightslm/insightslm/pkg/types"
	"github.com/insightslm/insightslm/pkg/utils"
)

func I18n() gin.HandlerFunc {
	var allowList []string
	for k := range i18n.ALLOW_LANG {
		allowList = append(allowList, k)
	}
	l := i18n.NewLocalizer(allowList...)

	return response.ProvideResponseLocalizer(l)
}

// AcceptLanguage 目前服务端支持 en: English, zh-CN: 简体中文
func AcceptLanguage() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		lang := ctx.Request.Header.Get("Accept-Language")
		if lang == "" {
			ctx.Set(v1.LANGUAGE_KEY, types.LANGUAGE_EN_KEY)
			return
		}

		res := utils.ParseAcceptLanguage(lang)
		if len(res) == 0 {
			ctx.Set(v1.LANGUAGE_KEY, types.LANGUAGE_EN_KEY)
			return
		}

		ctx.Set(v1.LANGUAGE_KEY, lo.If(strings.Contains(res[0].Tag, "zh"), types.LANGUAGE_CN_KEY).Else(types.LANGUAGE_EN_KEY))
	}
}

const (
	AUTH_TOKEN_HEADER_KEY = security.TOKEN_KEY
	// FUNCTION_CALLER_KEY 记录 /functions/v1 请求的调用方，user 或 webhook
	FUNCTION_CALLER_KEY = "__insights.function_caller"
)

func unauthorized(trace string, err error) error {
	return errors.New(trace, i18n.ERROR_UNAUTHORIZED, err).Code(http.StatusUnauthorized)
}

// ParseAuthToken 校验 token 签名、有效期以及是否已登出，通过后写入上下文
func ParseAuthToken(c *gin.Context, tokenValue string, core *core.Core) (bool, error) {
	tokenValue = strings.TrimSpace(strings.TrimPrefix(tokenValue, "Bearer "))
	if tokenValue == "" {
		return false, nil
	}

	claims, err := security.VerifyToken(tokenValue, []byte(core.Cfg().Auth.JWTSecret))
	if err != nil {
		return false, unauthorized("ParseAuthToken.VerifyToken", err)
	}

	ctx, cancel := context.WithTimeout(c, time.Second*10)
	defer cancel()

	revoked, err := v1.NewAuthLogic(ctx, core).Revoked(tokenValue)
	if err != nil {
		return false, errors.Trace("ParseAuthToken.Revoked", err)
	}
	if revoked {
		return false, unauthorized("ParseAuthToken.Revoked", nil)
	}

	c.Set(v1.TOKEN_CONTEXT_KEY, *claims)
	c.Set(v1.RAW_TOKEN_CONTEXT_KEY, tokenValue)
	c.Set(response.UserKey, claims.User)
	return true, nil
}

func Authorization(core *core.Core) gin.HandlerFunc {
	tracePrefix := "middleware.Authorization"
	return func(c *gin.Context) {
		matched, err := ParseAuthToken(c, c.GetHeader(AUTH_TOKEN_HEADER_KEY), core)
		if err != nil {
			response.APIError(c, errors.Trace(tracePrefix, err))
			return
		}
		if !matched {
			response.APIError(c, unauthorized(tracePrefix, nil))
		}
	}
}

// AuthorizationFromQuery 浏览器的 websocket 无法携带 header，token 放在 query 中
func AuthorizationFromQuery(core *core.Core) gin.HandlerFunc {
	tracePrefix := "middleware.AuthorizationFromQuery"
	return func(c *gin.Context) {
		tokenValue := c.Query("token")
		if tokenValue == "" {
			tokenValue = c.GetHeader(AUTH_TOKEN_HEADER_KEY)
		}
		matched, err := ParseAuthToken(c, tokenValue, core)
		if err != nil {
			response.APIError(c, errors.Trace(tracePrefix, err))
			return
		}
		if !matched {
			response.APIError(c, unauthorized(tracePrefix, nil))
		}
	}
}

// FunctionAuth /functions/v1 既接受用户 token，也接受外部工作流携带的 webhook 凭证
func FunctionAuth(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(AUTH_TOKEN_HEADER_KEY)
		if secret := core.Cfg().Webhook.Auth; secret != "" &&
			(header == secret || strings.TrimPrefix(header, "Bearer ") == secret) {
			c.Set(FUNCTION_CALLER_KEY, "webhook")
			return
		}

		matched, err := ParseAuthToken(c, header, core)
		if err != nil || !matched {
			response.FunctionError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		c.Set(FUNCTION_CALLER_KEY, "user")
	}
}

func Cors(c *gin.Context) {
	method := c.Request.Method
	origin := c.Request.Header.Get("Origin")
	if origin != "" {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, PATCH, DELETE")
		c.Header("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization, X-Client-Info, Apikey")
		c.Header("Access-Control-Expose-Headers", "Content-Length, Access-Control-Allow-Origin, Access-Control-Allow-Headers, Cache-Control, Content-Language, Content-Type")
	}
	if method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}

type LimiterFunc func(key string, opts ...core.LimitOption) gin.HandlerFunc

func UseLimit(appCore *core.Core, operation string, genKeyFunc func(c *gin.Context) string, opts ...core.LimitOption) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !appCore.UseLimiter(c, genKeyFunc(c), operation, opts...).Allow() {
			response.APIError(c, errors.New("middleware.limiter", i18n.ERROR_TOO_MANY_REQUESTS, nil).Code(http.StatusTooManyRequests))
		}
	}
}

// Metrics 记录接口耗时与非 2xx 响应
func Metrics(core *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		api := c.FullPath()
		if api == "" {
			c.Next()
			return
		}
		timer := core.Metrics().ApiResponseTimer(api)
		c.Next()
		timer.ObserveDuration()

		if status := c.Writer.Status(); status >= http.StatusBadRequest {
			core.Metrics().ApiErrorInc(c.Request.Method, api, status)
		}
	}
}
