package v1

import (
	"context"

	"github.com/samber/lo"

	"github.com/insightslm/insightslm/pkg/security"
	"github.com/insightslm/insightslm/pkg/types"
)

const (
	TOKEN_CONTEXT_KEY     = "__insights.access_token"
	RAW_TOKEN_CONTEXT_KEY = "__insights.raw_access_token"
	LANGUAGE_KEY          = "__insights.accept_language"
)

// InjectTokenClaim get user token claims from context
func InjectTokenClaim(ctx context.Context) (security.TokenClaims, bool) {
	val, ok := ctx.Value(TOKEN_CONTEXT_KEY).(security.TokenClaims)
	return val, ok
}

// InjectRawToken 请求携带的原始 token，注销时使用
func InjectRawToken(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(RAW_TOKEN_CONTEXT_KEY).(string)
	return val, ok
}

func InjectLanguage(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(LANGUAGE_KEY).(string)
	return val, ok
}

func GetContentByClientLanguage[T any](c context.Context, enRes T, cnRes T) T {
	clientLang, _ := InjectLanguage(c)
	return lo.If(clientLang == types.LANGUAGE_CN_KEY, cnRes).Else(enRes)
}

// detach 复制请求中的身份信息到一个不会被取消的新 context，供请求结束后仍在运行的后台任务使用
func detach(ctx context.Context) context.Context {
	out := context.Background()
	if claims, ok := InjectTokenClaim(ctx); ok {
		out = context.WithValue(out, TOKEN_CONTEXT_KEY, claims)
	}
	if token, ok := InjectRawToken(ctx); ok {
		out = context.WithValue(out, RAW_TOKEN_CONTEXT_KEY, token)
	}
	if lang, ok := InjectLanguage(ctx); ok {
		out = context.WithValue(out, LANGUAGE_KEY, lang)
	}
	return out
}
