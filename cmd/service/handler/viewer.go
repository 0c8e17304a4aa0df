package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/insightslm/insightslm/app/logic/v1"
	"github.com/insightslm/insightslm/app/response"
	"github.com/insightslm/insightslm/pkg/content"
	"github.com/insightslm/insightslm/pkg/utils"
)

// 查看器会话由客户端生成 session id，按用户隔离

func (s *HttpSrv) ViewerSelectCitation(c *gin.Context) {
	var (
		err error
		req content.Citation
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	snap, err := v1.NewViewerLogic(c, s.Core).Select(c.Param("session"), req)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, snap)
}

type ViewerOpenSourceRequest struct {
	SourceID string `json:"source_id" binding:"required"`
}

func (s *HttpSrv) ViewerOpenSource(c *gin.Context) {
	var (
		err error
		req ViewerOpenSourceRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	snap, err := v1.NewViewerLogic(c, s.Core).OpenSource(c.Param("session"), req.SourceID)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, snap)
}

func (s *HttpSrv) ViewerToggleGuide(c *gin.Context) {
	snap, err := v1.NewViewerLogic(c, s.Core).ToggleGuide(c.Param("session"))
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, snap)
}

func (s *HttpSrv) ViewerClose(c *gin.Context) {
	response.APISuccess(c, v1.NewViewerLogic(c, s.Core).Close(c.Param("session")))
}

func (s *HttpSrv) Logout(c *gin.Context) {
	if err := v1.NewAuthLogic(c, s.Core).Logout(); err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, nil)
}
