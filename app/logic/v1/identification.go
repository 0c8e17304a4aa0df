package v1

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/insightslm/insightslm/app/core"
	"github.com/insightslm/insightslm/pkg/errors"
	"github.com/insightslm/insightslm/pkg/i18n"
	"github.com/insightslm/insightslm/pkg/security"
	"github.com/insightslm/insightslm/pkg/types"
)

func SetupUserInfo(ctx context.Context, core *core.Core) UserInfo {
	userInfo, ok := InjectTokenClaim(ctx)
	if !ok {
		slog.Debug("Not found user in context", slog.String("component", "logic.v1.setupUserInfo"))
		userInfo = security.TokenClaims{}
	}
	return &_userInfo{
		ctx:  ctx,
		u:    &userInfo,
		core: core,
	}
}

type UserInfo interface {
	GetUserInfo() security.TokenClaims
	// OwnedNotebook 读取当前用户的笔记本，不存在或不属于该用户时返回错误
	OwnedNotebook(id string) (*types.Notebook, error)
}

type _userInfo struct {
	ctx  context.Context
	u    *security.TokenClaims
	core *core.Core
}

func (u *_userInfo) GetUserInfo() security.TokenClaims {
	return *u.u
}

func (u *_userInfo) OwnedNotebook(id string) (*types.Notebook, error) {
	nb, err := u.core.Store().NotebookStore().Get(u.ctx, id)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("UserInfo.OwnedNotebook.NotebookStore.Get", i18n.ERROR_INTERNAL, err)
	}
	if nb == nil {
		return nil, errors.New("UserInfo.OwnedNotebook.NotebookStore.Get", i18n.ERROR_NOTEBOOK_NOT_FOUND, nil).Code(http.StatusNotFound)
	}
	if nb.UserID != u.u.User {
		return nil, errors.New("UserInfo.OwnedNotebook", i18n.ERROR_PERMISSION_DENIED, nil).Code(http.StatusForbidden)
	}
	return nb, nil
}
