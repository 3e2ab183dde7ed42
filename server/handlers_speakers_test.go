package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/media"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/tts"
)

func form(t *testing.T, r *Router, method, path string, values url.Values) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, req)
	return w, decode(t, w)
}

func TestCustomSpeakers(t *testing.T) {
	r := newTestRouter(t, nil)

	w, body := form(t, r, http.MethodPost, "/api/custom-speakers", url.Values{"voice_id": {" voice-a "}})
	if w.Code != http.StatusOK || body["message"] == nil {
		t.Fatalf("add = %d %v", w.Code, body)
	}
	first := body["speaker"].(map[string]any)
	if first["name"] != "SPEAKER_06" || first["voice_id"] != "voice-a" {
		t.Errorf("added speaker = %v, want SPEAKER_06/voice-a", first)
	}
	id := first["id"].(string)

	w, body = do(t, r, http.MethodPost, "/api/custom-speakers", `{"voice_id":"voice-b"}`)
	if w.Code != http.StatusOK || body["speaker"].(map[string]any)["name"] != "SPEAKER_07" {
		t.Errorf("second add = %d %v, want SPEAKER_07", w.Code, body)
	}

	if w, _ := form(t, r, http.MethodPost, "/api/custom-speakers", url.Values{"voice_id": {"  "}}); w.Code != http.StatusBadRequest {
		t.Errorf("blank voice status = %d, want 400", w.Code)
	}

	w, body = form(t, r, http.MethodPut, "/api/custom-speakers/"+id, url.Values{"voice_id": {"voice-c"}})
	if w.Code != http.StatusOK || body["speaker"].(map[string]any)["voice_id"] != "voice-c" {
		t.Errorf("update = %d %v", w.Code, body)
	}
	if w, _ := form(t, r, http.MethodPut, "/api/custom-speakers/missing", url.Values{"voice_id": {"x"}}); w.Code != http.StatusNotFound {
		t.Errorf("update missing status = %d, want 404", w.Code)
	}

	w, body = do(t, r, http.MethodGet, "/api/custom-speakers", "")
	if w.Code != http.StatusOK || body["success"] != true || len(body["speakers"].([]any)) != 2 {
		t.Errorf("list = %d %v", w.Code, body)
	}

	_, body = do(t, r, http.MethodGet, "/api/all-speakers", "")
	defaults := body["default_speakers"].([]any)
	if len(defaults) != len(config.DefaultVoiceMapping) || defaults[0].(map[string]any)["is_custom"] != false {
		t.Errorf("default_speakers = %v", defaults)
	}
	custom := body["custom_speakers"].([]any)
	if len(custom) != 2 || custom[0].(map[string]any)["is_custom"] != true || custom[0].(map[string]any)["id"] != id {
		t.Errorf("custom_speakers = %v", custom)
	}
	names := body["all_speaker_names"].([]any)
	if len(names) != len(config.DefaultVoiceMapping)+2 || names[len(names)-1] != "SPEAKER_07" {
		t.Errorf("all_speaker_names = %v", names)
	}
	if mapping := body["voice_mapping"].(map[string]any); mapping["SPEAKER_06"] != "voice-c" {
		t.Errorf("voice_mapping = %v", mapping)
	}

	if w, _ := do(t, r, http.MethodDelete, "/api/custom-speakers/"+id, ""); w.Code != http.StatusOK {
		t.Errorf("delete status = %d", w.Code)
	}
	if w, _ := do(t, r, http.MethodDelete, "/api/custom-speakers/"+id, ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestCustomSpeakers_Limit(t *testing.T) {
	r := newTestRouter(t, nil)
	for n := config.FirstCustomSpeaker; n <= config.LastCustomSpeaker; n++ {
		if w, body := form(t, r, http.MethodPost, "/api/custom-speakers", url.Values{"voice_id": {"v"}}); w.Code != http.StatusOK {
			t.Fatalf("add %d = %d %v", n, w.Code, body)
		}
	}
	if w, _ := form(t, r, http.MethodPost, "/api/custom-speakers", url.Values{"voice_id": {"v"}}); w.Code != http.StatusBadRequest {
		t.Errorf("add past SPEAKER_99 status = %d, want 400", w.Code)
	}
}

func TestCustomSpeakerVoiceUsedForSynthesis(t *testing.T) {
	mock := tts.NewMock(media.NewWAVCodec(), testRate)
	var mu sync.Mutex
	var voices []string
	synth := tts.SynthesizerFunc(func(ctx context.Context, req tts.Request) tts.Result {
		mu.Lock()
		voices = append(voices, req.Voice)
		mu.Unlock()
		return mock.Synthesize(ctx, req)
	})
	r := newTestRouter(t, synth)
	id, segs := parseSample(t, r)

	w, body := form(t, r, http.MethodPost, "/api/custom-speakers", url.Values{"voice_id": {"my-voice"}})
	if w.Code != http.StatusOK {
		t.Fatalf("add = %d %v", w.Code, body)
	}
	base := "/api/projects/" + id
	if w, body := do(t, r, http.MethodPost, base+"/batch-update-speaker", `{"segment_ids":["`+segs[0]+`"],"speaker":"SPEAKER_06"}`); w.Code != http.StatusOK {
		t.Fatalf("batch-update-speaker = %d %v", w.Code, body)
	}

	if w, body := do(t, r, http.MethodPost, base+"/segments/"+segs[0]+"/generate-tts", `{}`); w.Code != http.StatusOK {
		t.Fatalf("generate = %d %v", w.Code, body)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(voices) == 0 || voices[0] != "my-voice" {
		t.Errorf("synthesized voices = %v, want my-voice", voices)
	}
}
