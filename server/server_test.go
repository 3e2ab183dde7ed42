package server

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/jobs"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/logger"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/media"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/translation"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/tts"
	"github.com/backearth1/MiniMax-TTS-Translation/models"
	"github.com/backearth1/MiniMax-TTS-Translation/services"
)

const testRate = 8000

const sampleSRT = `1
[00:00:00.000 --> 00:00:02.000] SPEAKER_00
Hello there

2
[00:00:02.000 --> 00:00:04.000] SPEAKER_01
How are you

3
[00:00:04.000 --> 00:00:05.000] SPEAKER_00
Fine
`

type echoText struct{}

func (echoText) Translate(_ context.Context, text, language string) translation.Result {
	return translation.Result{Text: "[" + language + "] " + text}
}

func (echoText) Shorten(_ context.Context, req translation.ShortenRequest) translation.Result {
	return translation.Result{Text: req.Current}
}

func (echoText) Adjust(_ context.Context, req translation.AdjustRequest) translation.Result {
	return translation.Result{Text: strings.ToUpper(req.Current)}
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, synth tts.Synthesizer) *Router {
	t.Helper()
	codec := media.NewWAVCodec()
	if synth == nil {
		synth = tts.NewMock(codec, testRate)
	}
	cfg := models.DefaultConfig()
	cfg.Server.OutputDir = t.TempDir()
	cfg.Dubbing.Format = "wav"
	cfg.Dubbing.SampleRate = testRate

	dubber := services.NewDubber(cfg, &services.Providers{
		Codec:          codec,
		SampleRate:     testRate,
		NewSynthesizer: func(logger.Sink) tts.Synthesizer { return synth },
		NewTextService: func(logger.Sink) services.TextService { return echoText{} },
	})
	speakers, err := services.NewSpeakerManager(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	dubber.SetSpeakers(speakers)
	r := NewRouter(Deps{
		Config:   cfg,
		Dubber:   dubber,
		Projects: services.NewProjectManager(nil),
		Speakers: speakers,
		Jobs:     jobs.NewRegistry(),
		Logs:     logger.NewHub(100),
	})
	t.Cleanup(r.Close)
	return r
}

func do(t *testing.T, r *Router, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, req)
	return w, decode(t, w)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := sonic.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s: %v", w.Body.String(), err)
		}
	}
	return out
}

func upload(t *testing.T, r *Router, path, filename, content string, fields map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, req)
	return w, decode(t, w)
}

// parseSample uploads the sample file and returns the project id and the
// segment ids in order.
func parseSample(t *testing.T, r *Router) (string, []string) {
	t.Helper()
	w, body := upload(t, r, "/api/parse-subtitle", "sample.srt", sampleSRT, map[string]string{"client_id": "c1"})
	if w.Code != http.StatusOK {
		t.Fatalf("parse-subtitle status = %d, body %s", w.Code, w.Body.String())
	}
	project := body["project"].(map[string]any)
	var ids []string
	for _, s := range body["segments"].([]any) {
		ids = append(ids, s.(map[string]any)["id"].(string))
	}
	return project["id"].(string), ids
}

func TestHealthAndConfig(t *testing.T) {
	r := newTestRouter(t, nil)

	w, body := do(t, r, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", w.Code, body)
	}

	_, body = do(t, r, http.MethodGet, "/api/config", "")
	if voices, ok := body["voices"].(map[string]any); !ok || voices["SPEAKER_00"] == nil {
		t.Errorf("config voices = %v", body["voices"])
	}
	if emotions, ok := body["emotions"].([]any); !ok || len(emotions) == 0 {
		t.Errorf("config emotions = %v", body["emotions"])
	}
}

func TestParseSubtitle(t *testing.T) {
	r := newTestRouter(t, nil)
	id, segs := parseSample(t, r)
	if id == "" || len(segs) != 3 {
		t.Fatalf("parse = %q, %d segments", id, len(segs))
	}

	w, body := do(t, r, http.MethodGet, "/api/projects?client_id=c1", "")
	if w.Code != http.StatusOK || len(body["projects"].([]any)) != 1 {
		t.Errorf("projects = %d %v", w.Code, body)
	}

	w, body = upload(t, r, "/api/parse-subtitle", "empty.srt", "nothing to see", nil)
	if w.Code != http.StatusBadRequest || body["success"] != false {
		t.Errorf("parse of empty file = %d %v, want 400", w.Code, body)
	}
}

func TestSegmentEditing(t *testing.T) {
	r := newTestRouter(t, nil)
	id, segs := parseSample(t, r)
	base := "/api/projects/" + id

	w, body := do(t, r, http.MethodPut, base+"/segments/"+segs[0], `{"text":"Hi","speed":1.4}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d %v", w.Code, body)
	}
	if seg := body["segment"].(map[string]any); seg["text"] != "Hi" || seg["speed"] != 1.4 {
		t.Errorf("updated segment = %v", seg)
	}

	w, _ = do(t, r, http.MethodPut, base+"/segments/"+segs[0], `{"start_time":"00:00:03,000","end_time":"00:00:01,000"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("inverted window status = %d, want 400", w.Code)
	}
	w, _ = do(t, r, http.MethodPut, base+"/segments/"+segs[0], `{"speed":3}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("speed 3 status = %d, want 400", w.Code)
	}
	w, _ = do(t, r, http.MethodPut, base+"/segments/missing", `{"text":"x"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing segment status = %d, want 404", w.Code)
	}

	w, body = do(t, r, http.MethodPost, base+"/segments",
		`{"after_segment_id":"`+segs[0]+`","start_time":"00:00:01.500","end_time":"00:00:01.900","speaker":"SPEAKER_02","text":"inserted"}`)
	if w.Code != http.StatusOK || body["total_segments"] != float64(4) {
		t.Fatalf("add = %d %v", w.Code, body)
	}
	if seg := body["segment"].(map[string]any); seg["index"] != float64(2) || seg["start_time"] != "00:00:01,500" {
		t.Errorf("added segment = %v", seg)
	}

	w, body = do(t, r, http.MethodPost, base+"/batch-update-speaker", `{"segment_ids":["`+segs[1]+`","`+segs[2]+`"],"speaker":"SPEAKER_09"}`)
	if w.Code != http.StatusOK || body["updated"] != float64(2) {
		t.Errorf("batch speaker = %d %v", w.Code, body)
	}

	w, body = do(t, r, http.MethodDelete, base+"/segments/"+segs[2], "")
	if w.Code != http.StatusOK || body["total_segments"] != float64(3) {
		t.Errorf("delete segment = %d %v", w.Code, body)
	}

	_, body = do(t, r, http.MethodGet, base+"/segments?page=2&per_page=2", "")
	page := body["pagination"].(map[string]any)
	if page["pages"] != float64(2) || len(body["segments"].([]any)) != 1 {
		t.Errorf("page 2 = %v", body)
	}
}

func TestExport(t *testing.T) {
	r := newTestRouter(t, nil)
	id, _ := parseSample(t, r)

	tests := []struct {
		format string
		want   string
	}{
		{"annotated", "[00:00:00.000 --> 00:00:02.000] SPEAKER_00"},
		{"srt", "00:00:00,000 --> 00:00:02,000"},
		{"vtt", "WEBVTT"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w, _ := do(t, r, http.MethodGet, "/api/projects/"+id+"/export-srt?format="+tt.format, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("export = %q, want it to contain %q", w.Body.String(), tt.want)
			}
			if !strings.Contains(w.Header().Get("Content-Disposition"), "sample_edited") {
				t.Errorf("Content-Disposition = %q", w.Header().Get("Content-Disposition"))
			}
		})
	}

	if w, _ := do(t, r, http.MethodGet, "/api/projects/"+id+"/export-srt?format=docx", ""); w.Code != http.StatusBadRequest {
		t.Errorf("unknown format status = %d, want 400", w.Code)
	}
}

func TestBatchGenerateAndMerge(t *testing.T) {
	r := newTestRouter(t, nil)
	id, _ := parseSample(t, r)
	base := "/api/projects/" + id

	if w, _ := do(t, r, http.MethodPost, base+"/batch-generate-tts", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("batch without client_id = %d, want 400", w.Code)
	}
	if w, body := do(t, r, http.MethodPost, base+"/batch-generate-tts", `{"client_id":`); w.Code != http.StatusBadRequest || body["success"] != false {
		t.Errorf("batch with malformed body = %d %v, want 400", w.Code, body)
	}
	if w, _ := do(t, r, http.MethodPost, base+"/merge-audio?client_id=c1", `{"translate":"maybe"}`); w.Code != http.StatusBadRequest {
		t.Errorf("merge with mistyped field = %d, want 400", w.Code)
	}

	w, body := do(t, r, http.MethodPost, base+"/batch-generate-tts", `{"client_id":"c1"}`)
	if w.Code != http.StatusAccepted || body["job_id"] == "" {
		t.Fatalf("batch = %d %v", w.Code, body)
	}
	r.Wait()

	_, body = do(t, r, http.MethodGet, "/api/task-status/c1", "")
	task := body["task"].(map[string]any)
	if task["status"] != string(models.StatusCompleted) || body["running"] != false {
		t.Errorf("task = %v", body)
	}
	summary := body["result"].(map[string]any)
	if summary["successful_segments"] != float64(3) {
		t.Errorf("summary = %v", summary)
	}

	_, body = do(t, r, http.MethodGet, base+"/segments", "")
	for _, s := range body["segments"].([]any) {
		if audio := s.(map[string]any)["audio"].(map[string]any); audio["kind"] != "real" {
			t.Errorf("segment audio = %v, want real", audio)
		}
	}

	w, body = do(t, r, http.MethodPost, base+"/merge-audio", `{"client_id":"c1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("merge = %d %v", w.Code, body)
	}
	name := body["filename"].(string)
	if _, err := os.Stat(filepath.Join(r.cfg.Server.OutputDir, name)); err != nil {
		t.Errorf("merged file missing: %v", err)
	}
	if report := body["report"].(map[string]any); report["length_ms"] != float64(5000) {
		t.Errorf("report = %v", report)
	}

	_, body = do(t, r, http.MethodGet, "/api/outputs", "")
	if files := body["files"].([]any); len(files) != 1 {
		t.Errorf("outputs = %v", files)
	}
	if w, _ := do(t, r, http.MethodDelete, "/api/outputs/"+name, ""); w.Code != http.StatusOK {
		t.Errorf("delete output = %d", w.Code)
	}
	if w, _ := do(t, r, http.MethodDelete, "/api/outputs/..%2Fdubber.db", ""); w.Code == http.StatusOK {
		t.Error("deleted a file outside the output directory")
	}

	_, body = do(t, r, http.MethodGet, "/api/logs/c1", "")
	if logs := body["logs"].([]any); len(logs) == 0 {
		t.Error("no progress events logged for c1")
	}
}

func TestBusyAndInterrupt(t *testing.T) {
	mock := tts.NewMock(media.NewWAVCodec(), testRate)
	started := make(chan struct{}, 10)
	release := make(chan struct{})
	synth := tts.SynthesizerFunc(func(ctx context.Context, req tts.Request) tts.Result {
		started <- struct{}{}
		<-release
		return mock.Synthesize(ctx, req)
	})
	r := newTestRouter(t, synth)
	id, _ := parseSample(t, r)
	base := "/api/projects/" + id

	if w, _ := do(t, r, http.MethodPost, base+"/batch-generate-tts", `{"client_id":"c1"}`); w.Code != http.StatusAccepted {
		t.Fatalf("batch status = %d", w.Code)
	}
	<-started

	if w, _ := do(t, r, http.MethodPost, base+"/translate", `{"client_id":"c1"}`); w.Code != http.StatusConflict {
		t.Errorf("second job status = %d, want 409", w.Code)
	}
	_, body := do(t, r, http.MethodPost, "/api/interrupt/c1", "")
	if body["success"] != true {
		t.Errorf("interrupt = %v", body)
	}
	close(release)
	r.Wait()

	_, body = do(t, r, http.MethodGet, "/api/task-status/c1", "")
	if task := body["task"].(map[string]any); task["status"] != string(models.StatusInterrupted) {
		t.Errorf("task = %v, want interrupted", task)
	}
	if summary := body["result"].(map[string]any); summary["successful_segments"] != float64(1) || summary["interrupted"] != true {
		t.Errorf("summary = %v", summary)
	}

	_, body = do(t, r, http.MethodPost, "/api/interrupt/c1", "")
	if body["success"] != false {
		t.Errorf("interrupt with no task = %v", body)
	}
}

func TestSegmentOperations(t *testing.T) {
	r := newTestRouter(t, nil)
	id, segs := parseSample(t, r)
	base := "/api/projects/" + id + "/segments/" + segs[0]

	w, body := do(t, r, http.MethodPost, base+"/adjust-text", `{"mode":"shorten"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("adjust without translation = %d %v, want 400", w.Code, body)
	}

	w, body = do(t, r, http.MethodPost, base+"/translate", `{"target_language":"fr"}`)
	if w.Code != http.StatusOK || body["translated_text"] != "[French] Hello there" {
		t.Fatalf("translate = %d %v", w.Code, body)
	}

	w, body = do(t, r, http.MethodPost, base+"/adjust-text", `{"mode":"lengthen"}`)
	if w.Code != http.StatusOK || body["translated_text"] != "[FRENCH] HELLO THERE" {
		t.Errorf("adjust = %d %v", w.Code, body)
	}
	if w, _ := do(t, r, http.MethodPost, base+"/adjust-text", `{"mode":"sideways"}`); w.Code != http.StatusBadRequest {
		t.Errorf("unknown mode status = %d, want 400", w.Code)
	}

	w, body = do(t, r, http.MethodPost, base+"/generate-tts", `{}`)
	if w.Code != http.StatusOK || body["outcome"] != "normal" {
		t.Fatalf("generate = %d %v", w.Code, body)
	}

	_, body = do(t, r, http.MethodGet, "/api/projects/"+id, "")
	first := body["project"].(map[string]any)["segments"].([]any)[0].(map[string]any)
	if first["translated_text"] != "[FRENCH] HELLO THERE" || first["audio"].(map[string]any)["kind"] != "real" {
		t.Errorf("stored segment = %v", first)
	}
}

func TestProcessFile(t *testing.T) {
	r := newTestRouter(t, nil)
	w, body := upload(t, r, "/api/process-file", "sample.srt", sampleSRT, map[string]string{"client_id": "c2"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("process-file = %d %v", w.Code, body)
	}
	r.Wait()

	_, body = do(t, r, http.MethodGet, "/api/task-status/c2", "")
	if task := body["task"].(map[string]any); task["status"] != string(models.StatusCompleted) || task["progress"] != float64(100) {
		t.Errorf("task = %v", task)
	}
	result := body["result"].(map[string]any)
	if url, _ := result["audio_url"].(string); !strings.HasPrefix(url, "/outputs/dubbed_") {
		t.Errorf("audio_url = %v", result["audio_url"])
	}

	_, body = do(t, r, http.MethodGet, "/api/projects?client_id=c2", "")
	if len(body["projects"].([]any)) != 1 {
		t.Errorf("process-file did not store its project: %v", body)
	}
}

func TestDeleteProject(t *testing.T) {
	r := newTestRouter(t, nil)
	id, _ := parseSample(t, r)

	if w, _ := do(t, r, http.MethodDelete, "/api/projects/"+id, ""); w.Code != http.StatusOK {
		t.Errorf("delete = %d", w.Code)
	}
	if w, _ := do(t, r, http.MethodGet, "/api/projects/"+id, ""); w.Code != http.StatusNotFound {
		t.Errorf("get deleted = %d, want 404", w.Code)
	}
}
