package response

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/insightslm/insightslm/pkg/errors"
	"github.com/insightslm/insightslm/pkg/i18n"
	"github.com/insightslm/insightslm/pkg/utils"
)

func ProvideResponseLocalizer(l i18n.Localizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("i18n", l)
	}
}

func InjectResponseLocalizer(c *gin.Context) i18n.Localizer {
	return c.MustGet("i18n").(i18n.Localizer)
}

// 常量定义
const (
	RequestIDKey = "request_id"
	ResponseKey  = "response_key"
	UserKey      = "user"
)

// Response 响应结构体定义
type Response struct {
	Meta Meta        `json:"meta"`
	Data interface{} `json:"data"`
}

// Meta 响应meta定义
type Meta struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

func GetLangFromRequestOrDefault(c *gin.Context) string {
	for _, l := range utils.ParseAcceptLanguage(c.Request.Header.Get("Accept-Language")) {
		lang := l.Tag
		if lang == "zh" {
			lang = "zh-CN"
		}
		if i18n.ALLOW_LANG[lang] {
			return lang
		}
	}
	return i18n.DEFAULT_LANG
}

func getResponse(c *gin.Context) *Response {
	if v, ok := c.Get(ResponseKey); ok {
		return v.(*Response)
	}
	return &Response{Meta: Meta{RequestID: utils.GenRandomID()}}
}

// APIError api响应失败
func APIError(c *gin.Context, err error) {
	c.Abort()
	res := getResponse(c)

	httpStatus := http.StatusInternalServerError
	if cerr, ok := errors.As(err); ok {
		httpStatus = cerr.GetCode()
		res.Meta.Message = InjectResponseLocalizer(c).Get(GetLangFromRequestOrDefault(c), cerr.Message())
	} else {
		res.Meta.Message = err.Error()
	}
	res.Meta.Code = httpStatus

	c.JSON(httpStatus, res)
	printErrorLog(c, httpStatus, err)
}

// APISuccess api响应成功
func APISuccess(c *gin.Context, response interface{}) {
	c.Abort()
	res := getResponse(c)
	if response != nil {
		res.Data = response
	}
	c.JSON(http.StatusOK, res)
	printSuccessLog(c)
}

// FunctionError 以 {"error": "..."} 的形式响应 /functions/v1 下的请求
func FunctionError(c *gin.Context, status int, message string, extra ...gin.H) {
	c.Abort()
	body := gin.H{"error": message}
	for _, e := range extra {
		for k, v := range e {
			body[k] = v
		}
	}
	c.JSON(status, body)
	slog.Error("function error", slog.String("request_uri", c.Request.URL.Path),
		slog.Int("status", status), slog.String("error", message))
}

// FunctionSuccess 原样输出 body
func FunctionSuccess(c *gin.Context, body any) {
	c.Abort()
	c.JSON(http.StatusOK, body)
	printSuccessLog(c)
}

func printErrorLog(c *gin.Context, code int, err error) {
	slog.Error("response error",
		slog.String("request_uri", c.Request.URL.Path),
		slog.String("method", c.Request.Method),
		slog.Int("code", code),
		slog.String("user", c.GetString(UserKey)),
		slog.Int64("end_time", time.Now().Unix()),
		slog.String("error", err.Error()))
}

func printSuccessLog(c *gin.Context) {
	slog.Info("request success",
		slog.String("request_uri", c.Request.URL.Path),
		slog.String("method", c.Request.Method),
		slog.String("user", c.GetString(UserKey)),
		slog.Int64("end_time", time.Now().Unix()),
		slog.String("params", c.Request.URL.Query().Encode()))
}

// NewResponse 为每个请求生成 request id
func NewResponse() gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := &Response{
			Meta: Meta{
				RequestID: utils.GenRandomID(),
			},
		}
		c.Set(ResponseKey, resp)
		c.Set(RequestIDKey, resp.Meta.RequestID)
	}
}
