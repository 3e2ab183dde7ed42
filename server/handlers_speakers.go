package server

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/backearth1/MiniMax-TTS-Translation/models"
)

type speakerRequest struct {
	VoiceID string `form:"voice_id" json:"voice_id"`
}

func bindVoice(c *gin.Context) (string, bool) {
	var req speakerRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid speaker data: "+err.Error())
		return "", false
	}
	voice := strings.TrimSpace(req.VoiceID)
	if voice == "" {
		fail(c, models.ErrEmptyVoice)
		return "", false
	}
	return voice, true
}

func (r *Router) handleListCustomSpeakers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "speakers": r.speakers.List()})
}

func (r *Router) handleAddCustomSpeaker(c *gin.Context) {
	voice, ok := bindVoice(c)
	if !ok {
		return
	}
	sp, err := r.speakers.Add(c.Request.Context(), voice)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Added speaker " + sp.Name,
		"speaker": sp,
	})
}

func (r *Router) handleUpdateCustomSpeaker(c *gin.Context) {
	voice, ok := bindVoice(c)
	if !ok {
		return
	}
	sp, err := r.speakers.Update(c.Request.Context(), c.Param("id"), voice)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Updated speaker " + sp.Name,
		"speaker": sp,
	})
}

func (r *Router) handleDeleteCustomSpeaker(c *gin.Context) {
	if err := r.speakers.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Speaker deleted"})
}

type speakerEntry struct {
	Name     string `json:"name"`
	VoiceID  string `json:"voice_id"`
	IsCustom bool   `json:"is_custom"`
	ID       string `json:"id,omitempty"`
}

// handleAllSpeakers lists the configured and custom speakers together with
// the merged voice mapping used for synthesis.
func (r *Router) handleAllSpeakers(c *gin.Context) {
	custom := r.speakers.List()

	defaults := make([]speakerEntry, 0, len(r.cfg.Voices))
	for name, voice := range r.cfg.Voices {
		defaults = append(defaults, speakerEntry{Name: name, VoiceID: voice})
	}
	sort.Slice(defaults, func(i, j int) bool { return defaults[i].Name < defaults[j].Name })

	customs := make([]speakerEntry, 0, len(custom))
	for _, sp := range custom {
		customs = append(customs, speakerEntry{Name: sp.Name, VoiceID: sp.VoiceID, IsCustom: true, ID: sp.ID})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"default_speakers":  defaults,
		"custom_speakers":   customs,
		"all_speaker_names": r.cfg.SpeakerNames(custom),
		"voice_mapping":     r.cfg.VoiceMapping(custom),
	})
}
