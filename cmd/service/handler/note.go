package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/insightslm/insightslm/app/logic/v1"
	"github.com/insightslm/insightslm/app/response"
	"github.com/insightslm/insightslm/pkg/content"
	"github.com/insightslm/insightslm/pkg/types"
	"github.com/insightslm/insightslm/pkg/utils"
)

func (s *HttpSrv) ListNotes(c *gin.Context) {
	list, err := v1.NewNoteLogic(c, s.Core).List(c.Param("notebookid"))
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, list)
}

func (s *HttpSrv) CreateNote(c *gin.Context) {
	var (
		err error
		req types.CreateNoteRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	note, err := v1.NewNoteLogic(c, s.Core).Create(c.Param("notebookid"), req)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, note)
}

// SaveChatNote 将一条对话消息存为笔记
func (s *HttpSrv) SaveChatNote(c *gin.Context) {
	var (
		err error
		req types.SaveChatNoteRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	note, err := v1.NewNoteLogic(c, s.Core).SaveFromChat(c.Param("notebookid"), req)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, note)
}

func (s *HttpSrv) GetNote(c *gin.Context) {
	note, err := v1.NewNoteLogic(c, s.Core).Get(c.Param("noteid"))
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, note)
}

func (s *HttpSrv) UpdateNote(c *gin.Context) {
	var (
		err error
		req types.UpdateNoteRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	note, err := v1.NewNoteLogic(c, s.Core).Update(c.Param("noteid"), req)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, note)
}

func (s *HttpSrv) DeleteNote(c *gin.Context) {
	if err := v1.NewNoteLogic(c, s.Core).Delete(c.Param("noteid")); err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, nil)
}

type RenderNoteResponse struct {
	Note      *types.Note        `json:"note"`
	Mode      string             `json:"mode"`
	HTML      string             `json:"html"`
	Text      string             `json:"text"`
	Citations []content.Citation `json:"citations"`
}

// RenderNote mode=inline 时按单段落渲染，其余按段落块渲染
func (s *HttpSrv) RenderNote(c *gin.Context) {
	note, doc, err := v1.NewNoteLogic(c, s.Core).Render(c.Param("noteid"), content.ParseMode(c.Query("mode")))
	if err != nil {
		response.APIError(c, err)
		return
	}

	res := RenderNoteResponse{
		Note:      note,
		Mode:      doc.Mode.String(),
		HTML:      doc.HTML(),
		Text:      doc.PlainText(),
		Citations: []content.Citation{},
	}
	for _, m := range doc.Markers() {
		res.Citations = append(res.Citations, m.Citation)
	}
	response.APISuccess(c, res)
}
