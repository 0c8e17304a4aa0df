package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/insightslm/insightslm/app/core"
	"github.com/insightslm/insightslm/pkg/auth"
	"github.com/insightslm/insightslm/pkg/errors"
	"github.com/insightslm/insightslm/pkg/i18n"
)

type AuthLogic struct {
	ctx  context.Context
	core *core.Core
	UserInfo
}

func NewAuthLogic(ctx context.Context, core *core.Core) *AuthLogic {
	return &AuthLogic{
		ctx:      ctx,
		core:     core,
		UserInfo: SetupUserInfo(ctx, core),
	}
}

// Logout 将当前 token 加入吊销列表直到其自然过期，重复登出同样成功
func (l *AuthLogic) Logout() error {
	token, ok := InjectRawToken(l.ctx)
	if !ok || token == "" {
		return nil
	}

	expiresAt := time.Unix(l.GetUserInfo().ExpireTime, 0)
	if err := auth.Revoke(l.ctx, l.core.Cache(), token, expiresAt); err != nil {
		return errors.New("AuthLogic.Logout.Revoke", i18n.ERROR_INTERNAL, err).Code(http.StatusInternalServerError)
	}
	return nil
}

// Revoked 校验 token 是否已登出
func (l *AuthLogic) Revoked(token string) (bool, error) {
	revoked, err := auth.Revoked(l.ctx, l.core.Cache(), token)
	if err != nil {
		return false, errors.New("AuthLogic.Revoked", i18n.ERROR_INTERNAL, err)
	}
	return revoked, nil
}
