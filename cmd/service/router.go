package service

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/insightslm/insightslm/app/core"
	v1 "github.com/insightslm/insightslm/app/logic/v1"
	"github.com/insightslm/insightslm/app/response"
	"github.com/insightslm/insightslm/cmd/service/handler"
	"github.com/insightslm/insightslm/cmd/service/middleware"
	"github.com/insightslm/insightslm/pkg/metrics"
)

func serve(core *core.Core) *http.Server {
	httpSrv := &handler.HttpSrv{
		Core:   core,
		Engine: core.HttpEngine(),
	}
	setupHttpRouter(httpSrv)

	return &http.Server{
		Addr:              core.Cfg().Addr,
		Handler:           core.HttpEngine(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func GetIPLimitBuilder(appCore *core.Core) middleware.LimiterFunc {
	return func(key string, opts ...core.LimitOption) gin.HandlerFunc {
		return middleware.UseLimit(appCore, key, func(c *gin.Context) string {
			return key + ":" + c.ClientIP()
		}, opts...)
	}
}

func GetUserLimitBuilder(appCore *core.Core) middleware.LimiterFunc {
	return func(key string, opts ...core.LimitOption) gin.HandlerFunc {
		return middleware.UseLimit(appCore, key, func(c *gin.Context) string {
			token, _ := v1.InjectTokenClaim(c)
			return key + ":" + token.User
		}, opts...)
	}
}

func setupHttpRouter(s *handler.HttpSrv) {
	userLimit := GetUserLimitBuilder(s.Core)
	ipLimit := GetIPLimitBuilder(s.Core)

	s.Engine.Use(gin.Recovery())
	s.Engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	s.Engine.GET("/metrics", metrics.DefaultExportHandler())

	s.Engine.Use(middleware.I18n(), response.NewResponse(), middleware.AcceptLanguage())
	s.Engine.Use(middleware.Cors, middleware.Metrics(s.Core))

	// edge functions，供前端与外部工作流调用
	functions := s.Engine.Group("/functions/v1")
	{
		functions.Use(middleware.FunctionAuth(s.Core))
		functions.POST("/generate-notebook-content", s.GenerateNotebookContent)
		functions.POST("/process-additional-sources", s.ProcessAdditionalSources)
		functions.POST("/process-document", s.ProcessDocument)
		functions.POST("/process-document-callback", s.ProcessDocumentCallback)
		functions.POST("/generate-audio-overview", userLimit("audio", core.WithLimit(5), core.WithRange(time.Minute)), s.GenerateAudioOverview)
		functions.POST("/audio-generation-callback", s.AudioGenerationCallback)
		functions.POST("/refresh-audio-url", s.RefreshAudioURL)
		functions.POST("/generate-note-title", userLimit("note_title"), s.GenerateNoteTitle)
	}

	apiV1 := s.Engine.Group("/api/v1")
	{
		apiV1.GET("/notebooks/:notebookid/sources/feed", ipLimit("feed"), middleware.AuthorizationFromQuery(s.Core), handler.Feed(s.Core))

		authed := apiV1.Group("")
		authed.Use(middleware.Authorization(s.Core))

		authed.POST("/auth/logout", s.Logout)

		notebook := authed.Group("/notebooks")
		{
			notebook.GET("", s.ListNotebooks)
			notebook.POST("", userLimit("modify_notebook"), s.CreateNotebook)
			notebook.GET("/:notebookid", s.GetNotebook)
			notebook.PUT("/:notebookid", userLimit("modify_notebook"), s.UpdateNotebook)
			notebook.DELETE("/:notebookid", s.DeleteNotebook)

			notebook.GET("/:notebookid/sources", s.ListSources)
			notebook.POST("/:notebookid/sources/upload", userLimit("upload"), s.UploadSources)
			notebook.POST("/:notebookid/sources/websites", userLimit("upload"), s.AddWebsites)
			notebook.POST("/:notebookid/sources/text", userLimit("upload"), s.AddCopiedText)

			notebook.GET("/:notebookid/notes", s.ListNotes)
			notebook.POST("/:notebookid/notes", s.CreateNote)
			notebook.POST("/:notebookid/notes/chat", s.SaveChatNote)

			notebook.GET("/:notebookid/audio/stream", s.StreamAudio)
			notebook.DELETE("/:notebookid/audio", s.DeleteAudio)
		}

		source := authed.Group("/sources")
		{
			source.GET("/:sourceid", s.GetSource)
			source.PUT("/:sourceid", s.UpdateSource)
			source.DELETE("/:sourceid", s.DeleteSource)
		}

		note := authed.Group("/notes")
		{
			note.GET("/:noteid", s.GetNote)
			note.GET("/:noteid/render", s.RenderNote)
			note.PUT("/:noteid", s.UpdateNote)
			note.DELETE("/:noteid", s.DeleteNote)
		}

		viewer := authed.Group("/viewer/:session")
		{
			viewer.POST("/select", s.ViewerSelectCitation)
			viewer.POST("/open", s.ViewerOpenSource)
			viewer.POST("/guide", s.ViewerToggleGuide)
			viewer.DELETE("", s.ViewerClose)
		}
	}
}
