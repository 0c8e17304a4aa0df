package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/insightslm/insightslm/app/logic/v1"
	"github.com/insightslm/insightslm/app/response"
	"github.com/insightslm/insightslm/pkg/types"
	"github.com/insightslm/insightslm/pkg/utils"
)

type ListNotebooksRequest struct {
	Page     uint64 `json:"page" form:"page"`
	PageSize uint64 `json:"pagesize" form:"pagesize"`
}

func (s *HttpSrv) ListNotebooks(c *gin.Context) {
	var (
		err error
		req ListNotebooksRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	list, err := v1.NewNotebookLogic(c, s.Core).List(req.Page, req.PageSize)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, list)
}

func (s *HttpSrv) CreateNotebook(c *gin.Context) {
	var (
		err error
		req types.CreateNotebookRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	nb, err := v1.NewNotebookLogic(c, s.Core).Create(req)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, nb)
}

func (s *HttpSrv) GetNotebook(c *gin.Context) {
	nb, err := v1.NewNotebookLogic(c, s.Core).Get(c.Param("notebookid"))
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, nb)
}

func (s *HttpSrv) UpdateNotebook(c *gin.Context) {
	var (
		err error
		req types.UpdateNotebookRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	nb, err := v1.NewNotebookLogic(c, s.Core).Update(c.Param("notebookid"), req)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, nb)
}

func (s *HttpSrv) DeleteNotebook(c *gin.Context) {
	if err := v1.NewNotebookLogic(c, s.Core).Delete(c.Param("notebookid")); err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, nil)
}

func (s *HttpSrv) StreamAudio(c *gin.Context) {
	body, track, err := v1.NewAudioLogic(c, s.Core).OpenAudio(c.Param("notebookid"))
	if err != nil {
		response.APIError(c, err)
		return
	}
	defer body.Close()

	headers := map[string]string{"Cache-Control": "no-store"}
	if !track.ExpiresAt.IsZero() {
		headers["X-Audio-Expires-At"] = track.ExpiresAt.UTC().Format(v1.ISO8601)
	}
	c.DataFromReader(http.StatusOK, -1, "audio/mpeg", body, headers)
}

func (s *HttpSrv) DeleteAudio(c *gin.Context) {
	if err := v1.NewAudioLogic(c, s.Core).DeleteAudio(c.Param("notebookid")); err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, nil)
}
