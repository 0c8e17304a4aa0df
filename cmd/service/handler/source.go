package handler

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/insightslm/insightslm/app/logic/v1"
	"github.com/insightslm/insightslm/app/response"
	"github.com/insightslm/insightslm/pkg/errors"
	"github.com/insightslm/insightslm/pkg/i18n"
	"github.com/insightslm/insightslm/pkg/types"
	"github.com/insightslm/insightslm/pkg/utils"
)

func (s *HttpSrv) ListSources(c *gin.Context) {
	list, err := v1.NewSourceLogic(c, s.Core).List(c.Param("notebookid"))
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, list)
}

func (s *HttpSrv) GetSource(c *gin.Context) {
	src, err := v1.NewSourceLogic(c, s.Core).Get(c.Param("sourceid"))
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, src)
}

type IngestResponse struct {
	Sources []*types.Source `json:"sources"`
	// Failed 创建失败的输入序号
	Failed []int `json:"failed"`
}

func ingestResponse(batch *v1.IngestBatch) IngestResponse {
	res := IngestResponse{Sources: batch.Created(), Failed: []int{}}
	for i, err := range batch.Errors {
		if err != nil {
			res.Failed = append(res.Failed, i)
		}
	}
	return res
}

func readUploadFile(fh *multipart.FileHeader) (v1.UploadFile, error) {
	f, err := fh.Open()
	if err != nil {
		return v1.UploadFile{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return v1.UploadFile{}, err
	}
	return v1.UploadFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// UploadSources multipart 表单，文件字段名为 files
func (s *HttpSrv) UploadSources(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.APIError(c, errors.New("api.UploadSources.MultipartForm", i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest))
		return
	}

	maxSize := int64(s.Core.Cfg().Ingest.MaxFileSizeMB) << 20
	files := make([]v1.UploadFile, 0, len(form.File["files"]))
	for _, fh := range form.File["files"] {
		if maxSize > 0 && fh.Size > maxSize {
			response.APIError(c, errors.New("api.UploadSources", i18n.ERROR_FILE_TOO_LARGE, nil).Code(http.StatusRequestEntityTooLarge))
			return
		}
		f, err := readUploadFile(fh)
		if err != nil {
			response.APIError(c, errors.New("api.UploadSources.readUploadFile", i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest))
			return
		}
		files = append(files, f)
	}

	batch, err := v1.NewSourceLogic(c, s.Core).Upload(c.Param("notebookid"), files)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, ingestResponse(batch))
}

func (s *HttpSrv) AddWebsites(c *gin.Context) {
	var (
		err error
		req types.AddWebsitesRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	batch, err := v1.NewSourceLogic(c, s.Core).AddWebsites(c.Param("notebookid"), req.URLs)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, ingestResponse(batch))
}

func (s *HttpSrv) AddCopiedText(c *gin.Context) {
	var (
		err error
		req types.AddCopiedTextRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	batch, err := v1.NewSourceLogic(c, s.Core).AddText(c.Param("notebookid"), req)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, ingestResponse(batch))
}

func (s *HttpSrv) UpdateSource(c *gin.Context) {
	var (
		err error
		req types.UpdateSourceRequest
	)
	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	src, err := v1.NewSourceLogic(c, s.Core).UpdateTitle(c.Param("sourceid"), req.Title)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, src)
}

func (s *HttpSrv) DeleteSource(c *gin.Context) {
	if err := v1.NewSourceLogic(c, s.Core).Delete(c.Param("sourceid")); err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, nil)
}
