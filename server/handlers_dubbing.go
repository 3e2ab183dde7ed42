package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/jobs"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/logger"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/translation"
	"github.com/backearth1/MiniMax-TTS-Translation/models"
	"github.com/backearth1/MiniMax-TTS-Translation/services"
)

// dubRequest carries the optional per-call settings of dubbing endpoints.
type dubRequest struct {
	ClientID       string `json:"client_id" form:"client_id"`
	Language       string `json:"language" form:"language"`
	TargetLanguage string `json:"target_language" form:"target_language"`
	Model          string `json:"model" form:"model"`
	Mode           string `json:"mode" form:"mode"`
	Translate      bool   `json:"translate" form:"translate"`
}

// bindDub reads the optional body; an empty body is fine. A body that does
// not bind is answered with 400 and ok is false.
func bindDub(c *gin.Context) (req dubRequest, ok bool) {
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return req, false
		}
	}
	if req.ClientID == "" {
		req.ClientID = c.Query("client_id")
	}
	return req, true
}

func (r *Router) options(req dubRequest) services.Options {
	opts := services.Options{
		Language:       req.Language,
		TargetLanguage: req.TargetLanguage,
		Model:          req.Model,
		Translate:      req.Translate,
		Sink:           logger.Discard,
	}
	if req.ClientID != "" {
		opts.Sink = r.logs.Get(req.ClientID)
	}
	return opts
}

// persist returns an OnSegment hook writing each finished segment back to
// the stored project.
func (r *Router) persist(ctx context.Context, projectID string) func(*models.Segment) {
	return func(seg *models.Segment) {
		if err := r.projects.PutSegment(ctx, projectID, seg); err != nil {
			logger.Error("persist segment %s of %s: %v", seg.ID, projectID, err)
		}
	}
}

// startJob registers a job for clientID and runs it in the background. The
// response is sent immediately; progress is polled through task-status.
func (r *Router) startJob(c *gin.Context, clientID, projectID string, kind models.JobKind, run func(ctx context.Context, h *jobs.Handle) (any, error)) {
	if clientID == "" {
		badRequest(c, "client_id is required")
		return
	}
	h, err := r.jobs.Start(clientID, projectID, kind)
	if err != nil {
		fail(c, err)
		return
	}
	r.mu.Lock()
	delete(r.results, clientID)
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		result, err := run(r.ctx, h)
		job := r.jobs.Finish(h, err)
		r.mu.Lock()
		r.results[clientID] = result
		r.mu.Unlock()

		sink := r.logs.Get(clientID)
		switch job.Status {
		case models.StatusFailed:
			logger.Notify(sink, logger.EventError, "Task failed", "%s: %s", kind, job.Error)
		case models.StatusInterrupted:
			logger.Notify(sink, logger.EventWarning, "Task interrupted", "%s at %d%%", kind, job.Progress)
		default:
			sink.Progress("Task completed", string(kind), 100)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"success":   true,
		"job_id":    h.ID(),
		"client_id": clientID,
		"message":   fmt.Sprintf("%s started", kind),
	})
}

func (r *Router) handleBatchGenerate(c *gin.Context) {
	req, ok := bindDub(c)
	if !ok {
		return
	}
	projectID := c.Param("id")
	p, err := r.projects.Get(c.Request.Context(), projectID)
	if err != nil {
		fail(c, err)
		return
	}
	opts := r.options(req)

	r.startJob(c, req.ClientID, projectID, models.JobBatchTTS, func(ctx context.Context, h *jobs.Handle) (any, error) {
		opts.OnSegment = r.persist(ctx, projectID)
		return r.dubber.GenerateAll(ctx, h, p, opts), nil
	})
}

func (r *Router) handleBatchTranslate(c *gin.Context) {
	req, ok := bindDub(c)
	if !ok {
		return
	}
	projectID := c.Param("id")
	p, err := r.projects.Get(c.Request.Context(), projectID)
	if err != nil {
		fail(c, err)
		return
	}
	opts := r.options(req)

	r.startJob(c, req.ClientID, projectID, models.JobTranslate, func(ctx context.Context, h *jobs.Handle) (any, error) {
		opts.OnSegment = r.persist(ctx, projectID)
		sum, err := r.dubber.TranslateAll(ctx, h, p, opts)
		return sum, err
	})
}

func (r *Router) handleProcessFile(c *gin.Context) {
	content, filename, err := readUpload(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	req, ok := bindDub(c)
	if !ok {
		return
	}
	opts := r.options(req)

	r.startJob(c, req.ClientID, "", models.JobProcessAll, func(ctx context.Context, h *jobs.Handle) (any, error) {
		res, err := r.dubber.ProcessFile(ctx, h, content, filename, req.ClientID, r.cfg.Server.OutputDir, opts)
		if res.Project != nil {
			if serr := r.projects.Create(ctx, res.Project); serr != nil && err == nil {
				err = serr
			}
		}
		return r.processResponse(res), err
	})
}

func (r *Router) processResponse(res services.ProcessResult) gin.H {
	out := gin.H{"summary": res.Summary, "report": res.Report, "translation": res.Translation}
	if res.Project != nil {
		out["project"] = res.Project.Summary()
	}
	if res.OutputPath != "" {
		out["audio_url"] = "/outputs/" + filepath.Base(res.OutputPath)
	}
	return out
}

func (r *Router) handleTranslateSegment(c *gin.Context) {
	req, ok := bindDub(c)
	if !ok {
		return
	}
	r.segmentCall(c, func(ctx context.Context, p *models.Project, sid string) (gin.H, error) {
		seg, err := r.dubber.TranslateOne(ctx, p, sid, r.options(req))
		if err != nil {
			return nil, err
		}
		return gin.H{"segment": seg, "translated_text": seg.TranslatedText}, nil
	})
}

func (r *Router) handleAdjustText(c *gin.Context) {
	req, ok := bindDub(c)
	if !ok {
		return
	}
	mode := translation.Mode(strings.ToLower(req.Mode))
	if !mode.Valid() {
		badRequest(c, fmt.Sprintf("mode must be %q or %q", translation.ModeShorten, translation.ModeLengthen))
		return
	}
	r.segmentCall(c, func(ctx context.Context, p *models.Project, sid string) (gin.H, error) {
		seg, err := r.dubber.Adjust(ctx, p, sid, mode, r.options(req))
		if err != nil {
			return nil, err
		}
		return gin.H{"segment": seg, "translated_text": seg.TranslatedText}, nil
	})
}

func (r *Router) handleGenerateSegment(c *gin.Context) {
	req, ok := bindDub(c)
	if !ok {
		return
	}
	r.segmentCall(c, func(ctx context.Context, p *models.Project, sid string) (gin.H, error) {
		seg, res, err := r.dubber.GenerateOne(ctx, p, sid, r.options(req))
		if err != nil {
			return nil, err
		}
		return gin.H{
			"segment":     seg,
			"outcome":     res.Outcome,
			"attempts":    res.Attempts,
			"final_speed": res.Speed,
			"duration_ms": res.DurationMs,
			"trace_id":    res.TraceID,
		}, nil
	})
}

// segmentCall runs a remote operation on a snapshot of the project, outside
// the project lock, and writes the changed segment back.
func (r *Router) segmentCall(c *gin.Context, call func(ctx context.Context, p *models.Project, sid string) (gin.H, error)) {
	ctx := c.Request.Context()
	projectID, sid := c.Param("id"), c.Param("sid")
	p, err := r.projects.Get(ctx, projectID)
	if err != nil {
		fail(c, err)
		return
	}
	body, err := call(ctx, p, sid)
	if err != nil {
		fail(c, err)
		return
	}
	seg, _, err := p.FindSegment(sid)
	if err != nil {
		fail(c, err)
		return
	}
	if err := r.projects.PutSegment(ctx, projectID, seg); err != nil {
		fail(c, err)
		return
	}
	body["success"] = true
	c.JSON(http.StatusOK, body)
}

func (r *Router) handleMerge(c *gin.Context) {
	req, ok := bindDub(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	p, err := r.projects.Get(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if req.ClientID != "" {
		r.logs.Get(req.ClientID).Progress("Merging audio", fmt.Sprintf("%d segments", len(p.Segments)), config.ProgressMergeStart)
	}

	out := filepath.Join(r.cfg.Server.OutputDir, r.dubber.MergedFilename(p))
	path, report, err := r.dubber.Merge(ctx, p, out, r.options(req))
	if err != nil {
		fail(c, err)
		return
	}
	if req.ClientID != "" {
		r.logs.Get(req.ClientID).Progress("Audio merged", filepath.Base(path), config.ProgressMergeEnd)
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"audio_url": "/outputs/" + filepath.Base(path),
		"filename":  filepath.Base(path),
		"report":    report,
	})
}

type outputFile struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	Created time.Time `json:"created"`
	URL     string    `json:"url"`
}

func isAudioFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3", ".wav":
		return true
	}
	return false
}

func (r *Router) handleListOutputs(c *gin.Context) {
	entries, err := os.ReadDir(r.cfg.Server.OutputDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		fail(c, err)
		return
	}
	files := []outputFile{}
	for _, e := range entries {
		if e.IsDir() || !isAudioFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, outputFile{Name: e.Name(), Size: info.Size(), Created: info.ModTime(), URL: "/outputs/" + e.Name()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Created.After(files[j].Created) })
	c.JSON(http.StatusOK, gin.H{"success": true, "files": files})
}

func (r *Router) handleDeleteOutput(c *gin.Context) {
	name := c.Param("filename")
	if name != filepath.Base(name) || !isAudioFile(name) {
		badRequest(c, "only audio files in the output directory can be deleted")
		return
	}
	path := filepath.Join(r.cfg.Server.OutputDir, name)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "file not found"})
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": name + " deleted"})
}

func (r *Router) handleInterrupt(c *gin.Context) {
	clientID := c.Param("client_id")
	if !r.jobs.Cancel(clientID) {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "no running task"})
		return
	}
	logger.Notify(r.logs.Get(clientID), logger.EventWarning, "Interrupt requested", "stopping after the current segment")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "interrupt requested"})
}

func (r *Router) handleTaskStatus(c *gin.Context) {
	clientID := c.Param("client_id")
	job, ok := r.jobs.Status(clientID)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"success": true, "has_task": false})
		return
	}
	r.mu.Lock()
	result := r.results[clientID]
	r.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"has_task": true,
		"running":  !job.Done(),
		"task":     job,
		"status":   job.StatusText(),
		"result":   result,
	})
}

func (r *Router) handleLogs(c *gin.Context) {
	events := []logger.Event{}
	if l, ok := r.logs.Lookup(c.Param("client_id")); ok {
		events = l.Events()
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "logs": events})
}

func (r *Router) handleClearLogs(c *gin.Context) {
	if l, ok := r.logs.Lookup(c.Param("client_id")); ok {
		l.Clear()
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
