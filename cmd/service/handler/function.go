package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/insightslm/insightslm/app/logic/v1"
	"github.com/insightslm/insightslm/app/response"
	"github.com/insightslm/insightslm/pkg/types"
)

// 以下为 /functions/v1 下的接口，请求与响应均为原始 json，不经过 response.Response 包装

func bindFunctionArgs(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.FunctionError(c, http.StatusBadRequest, "Invalid request body", gin.H{"details": err.Error()})
		return false
	}
	return true
}

func functionResponse(c *gin.Context, data any, err error) {
	if err != nil {
		status, body := v1.FunctionErrorBody(err)
		message, _ := body[v1.FUNCTION_ERROR_KEY].(string)
		response.FunctionError(c, status, message, body)
		return
	}
	response.FunctionSuccess(c, data)
}

func (s *HttpSrv) GenerateNotebookContent(c *gin.Context) {
	var req types.GenerateNotebookContentRequest
	if !bindFunctionArgs(c, &req) {
		return
	}
	res, err := v1.NewNotebookLogic(c, s.Core).GenerateContent(req)
	functionResponse(c, res, err)
}

func (s *HttpSrv) ProcessAdditionalSources(c *gin.Context) {
	var req types.ProcessAdditionalSourcesRequest
	if !bindFunctionArgs(c, &req) {
		return
	}
	res, err := v1.NewSourceLogic(c, s.Core).ProcessAdditionalSources(req)
	functionResponse(c, res, err)
}

func (s *HttpSrv) ProcessDocument(c *gin.Context) {
	var req types.ProcessDocumentRequest
	if !bindFunctionArgs(c, &req) {
		return
	}
	res, err := v1.NewSourceLogic(c, s.Core).ProcessDocument(req)
	functionResponse(c, res, err)
}

func (s *HttpSrv) ProcessDocumentCallback(c *gin.Context) {
	var req types.ProcessDocumentCallbackRequest
	if !bindFunctionArgs(c, &req) {
		return
	}
	res, err := v1.NewSourceLogic(c, s.Core).ProcessDocumentCallback(req)
	functionResponse(c, res, err)
}

func (s *HttpSrv) GenerateAudioOverview(c *gin.Context) {
	var req types.GenerateAudioOverviewRequest
	if !bindFunctionArgs(c, &req) {
		return
	}
	res, err := v1.NewAudioLogic(c, s.Core).Generate(req)
	functionResponse(c, res, err)
}

func (s *HttpSrv) AudioGenerationCallback(c *gin.Context) {
	var req types.AudioGenerationCallbackRequest
	if !bindFunctionArgs(c, &req) {
		return
	}
	res, err := v1.NewAudioLogic(c, s.Core).Callback(req)
	functionResponse(c, res, err)
}

func (s *HttpSrv) RefreshAudioURL(c *gin.Context) {
	var req types.RefreshAudioURLRequest
	if !bindFunctionArgs(c, &req) {
		return
	}
	res, err := v1.NewAudioLogic(c, s.Core).RefreshURL(req)
	functionResponse(c, res, err)
}

func (s *HttpSrv) GenerateNoteTitle(c *gin.Context) {
	var req types.GenerateNoteTitleRequest
	if !bindFunctionArgs(c, &req) {
		return
	}
	title, err := v1.NewNoteLogic(c, s.Core).GenerateTitle(req)
	functionResponse(c, gin.H{"title": title}, err)
}
