package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/emotion"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/jobs"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/store"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/subtitle"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/text"
	"github.com/backearth1/MiniMax-TTS-Translation/models"
	"github.com/backearth1/MiniMax-TTS-Translation/services"
)

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"success": false, "error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, models.ErrSegmentNotFound),
		errors.Is(err, models.ErrSpeakerNotFound):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidTimestamps),
		errors.Is(err, models.ErrInvalidSpeed),
		errors.Is(err, models.ErrTooManySegments),
		errors.Is(err, subtitle.ErrNoSegments),
		errors.Is(err, subtitle.ErrInvalidTimestamp),
		errors.Is(err, services.ErrNoTranslation),
		errors.Is(err, services.ErrNoLanguage),
		errors.Is(err, services.ErrExportFormat),
		errors.Is(err, models.ErrSpeakerLimit),
		errors.Is(err, models.ErrEmptyVoice):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (r *Router) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"status":      "ok",
		"credentials": r.cfg.Credentials().Valid(),
	})
}

func (r *Router) handleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"voices":    r.speakers.VoiceMapping(r.cfg),
		"models":    []string{config.DefaultTTSModel, "speech-01"},
		"languages": text.SupportedLanguages,
		"emotions":  emotion.Supported(),
		"limits": gin.H{
			"max_segments":    config.MaxSegmentsPerProject,
			"max_upload_size": config.MaxUploadSize,
			"min_speed":       config.MinSpeed,
			"max_speed":       config.MaxSpeed,
		},
		"format": r.cfg.Dubbing.Format,
	})
}

// readUpload returns the content of the multipart "file" field.
func readUpload(c *gin.Context) (string, string, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return "", "", fmt.Errorf("missing subtitle file: %w", err)
	}
	if header.Size > config.MaxUploadSize {
		return "", "", fmt.Errorf("file too large: %d bytes, at most %d", header.Size, config.MaxUploadSize)
	}
	f, err := header.Open()
	if err != nil {
		return "", "", err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, config.MaxUploadSize+1))
	if err != nil {
		return "", "", err
	}
	return string(data), filepath.Base(header.Filename), nil
}

func (r *Router) handleParseSubtitle(c *gin.Context) {
	content, filename, err := readUpload(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	clientID := c.PostForm("client_id")

	p, err := r.dubber.NewProject(content, filename, clientID)
	if err != nil {
		fail(c, err)
		return
	}
	if err := r.projects.Create(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}
	if clientID != "" {
		r.logs.Get(clientID).Progress("Subtitle parsed", fmt.Sprintf("%s: %d segments", filename, len(p.Segments)), config.ProgressParseEnd)
	}

	segments, page := p.Page(1, config.DefaultPageSize)
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"project":    p.Summary(),
		"speakers":   p.Speakers(),
		"segments":   segments,
		"pagination": page,
	})
}

func (r *Router) handleListProjects(c *gin.Context) {
	list, err := r.projects.List(c.Request.Context(), c.Query("client_id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "projects": list})
}

func (r *Router) handleGetProject(c *gin.Context) {
	p, err := r.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "project": p})
}

func (r *Router) handleDeleteProject(c *gin.Context) {
	if err := r.projects.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "project deleted"})
}

func (r *Router) handleListSegments(c *gin.Context) {
	p, err := r.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(config.DefaultPageSize)))
	segments, info := p.Page(page, perPage)
	c.JSON(http.StatusOK, gin.H{"success": true, "segments": segments, "pagination": info})
}

func (r *Router) handleUpdateSegment(c *gin.Context) {
	var u models.SegmentUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		badRequest(c, "invalid segment data: "+err.Error())
		return
	}
	var seg *models.Segment
	_, err := r.projects.Update(c.Request.Context(), c.Param("id"), func(p *models.Project) error {
		var err error
		seg, err = p.UpdateSegment(c.Param("sid"), u)
		return err
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "segment": seg})
}

type addSegmentRequest struct {
	AfterSegmentID string  `json:"after_segment_id"`
	StartTime      string  `json:"start_time" binding:"required"`
	EndTime        string  `json:"end_time" binding:"required"`
	Speaker        string  `json:"speaker"`
	Text           string  `json:"text"`
	Emotion        string  `json:"emotion"`
	Speed          float64 `json:"speed"`
}

func (r *Router) handleAddSegment(c *gin.Context) {
	var req addSegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid segment data: "+err.Error())
		return
	}
	seg := models.NewSegment(req.StartTime, req.EndTime, req.Speaker, req.Text, req.Emotion)
	if req.Speed != 0 {
		if req.Speed < config.MinSpeed || req.Speed > config.MaxSpeed {
			fail(c, models.ErrInvalidSpeed)
			return
		}
		seg.Speed = req.Speed
	}

	p, err := r.projects.Update(c.Request.Context(), c.Param("id"), func(p *models.Project) error {
		if len(p.Segments) >= config.MaxSegmentsPerProject {
			return fmt.Errorf("%w: at most %d", models.ErrTooManySegments, config.MaxSegmentsPerProject)
		}
		if req.AfterSegmentID == "" {
			return p.AddSegment(seg)
		}
		return p.InsertAfter(req.AfterSegmentID, seg)
	})
	if err != nil {
		fail(c, err)
		return
	}
	added, _, _ := p.FindSegment(seg.ID)
	c.JSON(http.StatusOK, gin.H{"success": true, "segment": added, "total_segments": p.TotalSegments})
}

func (r *Router) handleDeleteSegment(c *gin.Context) {
	p, err := r.projects.Update(c.Request.Context(), c.Param("id"), func(p *models.Project) error {
		return p.RemoveSegment(c.Param("sid"))
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "total_segments": p.TotalSegments})
}

type batchSpeakerRequest struct {
	SegmentIDs []string `json:"segment_ids"`
	Speaker    string   `json:"speaker" binding:"required"`
}

func (r *Router) handleBatchUpdateSpeaker(c *gin.Context) {
	var req batchSpeakerRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Speaker) == "" {
		badRequest(c, "speaker is required")
		return
	}
	var n int
	_, err := r.projects.Update(c.Request.Context(), c.Param("id"), func(p *models.Project) error {
		n = p.BatchUpdateSpeaker(req.SegmentIDs, strings.TrimSpace(req.Speaker))
		return nil
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": n})
}

func (r *Router) handleExport(c *gin.Context) {
	p, err := r.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	var buf bytes.Buffer
	ext, contentType, err := services.Export(&buf, p, c.DefaultQuery("format", services.ExportAnnotated))
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, services.ExportFilename(p, ext)))
	c.Data(http.StatusOK, contentType+"; charset=utf-8", buf.Bytes())
}
