// Package server exposes projects and dubbing operations over HTTP.
package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/jobs"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/logger"
	"github.com/backearth1/MiniMax-TTS-Translation/models"
	"github.com/backearth1/MiniMax-TTS-Translation/services"
)

// Deps are the collaborators the router serves.
type Deps struct {
	Config   *models.Config
	Dubber   *services.Dubber
	Projects *services.ProjectManager
	Speakers *services.SpeakerManager
	Jobs     *jobs.Registry
	Logs     *logger.Hub
}

// Router owns the gin engine and the background jobs it starts.
type Router struct {
	engine   *gin.Engine
	cfg      *models.Config
	dubber   *services.Dubber
	projects *services.ProjectManager
	speakers *services.SpeakerManager
	jobs     *jobs.Registry
	logs     *logger.Hub

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	results map[string]any // last job result per client
}

// NewRouter builds the engine and registers every route.
func NewRouter(d Deps) *Router {
	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(), CORSMiddleware())
	engine.MaxMultipartMemory = config.MaxUploadSize

	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		engine:   engine,
		cfg:      d.Config,
		dubber:   d.Dubber,
		projects: d.Projects,
		speakers: d.Speakers,
		jobs:     d.Jobs,
		logs:     d.Logs,
		ctx:      ctx,
		cancel:   cancel,
		results:  make(map[string]any),
	}
	if r.speakers == nil {
		// No store: custom speakers live for the process only.
		r.speakers, _ = services.NewSpeakerManager(ctx, nil)
		r.dubber.SetSpeakers(r.speakers)
	}
	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	r.engine.Static("/outputs", r.cfg.Server.OutputDir)

	api := r.engine.Group("/api")
	{
		api.GET("/health", r.handleHealth)
		api.GET("/config", r.handleConfig)

		api.GET("/custom-speakers", r.handleListCustomSpeakers)
		api.POST("/custom-speakers", r.handleAddCustomSpeaker)
		api.PUT("/custom-speakers/:id", r.handleUpdateCustomSpeaker)
		api.DELETE("/custom-speakers/:id", r.handleDeleteCustomSpeaker)
		api.GET("/all-speakers", r.handleAllSpeakers)

		api.POST("/parse-subtitle", r.handleParseSubtitle)
		api.GET("/projects", r.handleListProjects)

		projects := api.Group("/projects/:id")
		{
			projects.GET("", r.handleGetProject)
			projects.DELETE("", r.handleDeleteProject)

			projects.GET("/segments", r.handleListSegments)
			projects.POST("/segments", r.handleAddSegment)
			projects.PUT("/segments/:sid", r.handleUpdateSegment)
			projects.DELETE("/segments/:sid", r.handleDeleteSegment)
			projects.POST("/batch-update-speaker", r.handleBatchUpdateSpeaker)
			projects.GET("/export-srt", r.handleExport)

			projects.POST("/translate", r.handleBatchTranslate)
			projects.POST("/segments/:sid/translate", r.handleTranslateSegment)
			projects.POST("/segments/:sid/adjust-text", r.handleAdjustText)
			projects.POST("/segments/:sid/generate-tts", r.handleGenerateSegment)
			projects.POST("/batch-generate-tts", r.handleBatchGenerate)
			projects.POST("/merge-audio", r.handleMerge)
		}

		api.POST("/process-file", r.handleProcessFile)
		api.GET("/outputs", r.handleListOutputs)
		api.DELETE("/outputs/:filename", r.handleDeleteOutput)

		api.POST("/interrupt/:client_id", r.handleInterrupt)
		api.GET("/task-status/:client_id", r.handleTaskStatus)
		api.GET("/logs/:client_id", r.handleLogs)
		api.DELETE("/logs/:client_id", r.handleClearLogs)
	}
}

// Handler returns the HTTP handler.
func (r *Router) Handler() http.Handler {
	return r.engine
}

// Engine returns the underlying gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Close cancels running background jobs and waits for them to stop.
func (r *Router) Close() {
	r.cancel()
	r.wg.Wait()
}

// Wait blocks until every background job has finished.
func (r *Router) Wait() {
	r.wg.Wait()
}
