package tts

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
	apihttp "github.com/backearth1/MiniMax-TTS-Translation/internal/http"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/media"
)

const testRate = 8000

// speechWAV returns 200ms of silence, 600ms of tone and 200ms of silence.
func speechWAV(t *testing.T) []byte {
	t.Helper()
	c := media.NewSilence(testRate, 200)
	tone := media.NewSilence(testRate, 600)
	for i := range tone.Samples {
		tone.Samples[i] = int16(8000 * math.Sin(2*math.Pi*300*float64(i)/testRate))
	}
	c.Append(tone)
	c.AppendSilence(200)
	data, err := media.NewWAVCodec().Encode(context.Background(), c)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

type fakeAPI struct {
	t *testing.T

	// statuses returned by successive t2a calls; 0 means success
	statuses []int
	audio    []byte
	audioErr bool

	calls     atomic.Int32
	downloads atomic.Int32
	last      t2aRequest
}

func (f *fakeAPI) handler(server **httptest.Server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(config.TTSPath, func(w http.ResponseWriter, r *http.Request) {
		n := int(f.calls.Add(1))
		if r.Header.Get("Authorization") != "Bearer key" {
			f.t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		body, _ := io.ReadAll(r.Body)
		if err := sonic.Unmarshal(body, &f.last); err != nil {
			f.t.Errorf("bad request body: %v", err)
		}

		status := 0
		if n <= len(f.statuses) {
			status = f.statuses[n-1]
		}
		w.Header().Set("Trace-Id", "trace-"+string(rune('0'+n)))
		resp := map[string]any{"base_resp": map[string]any{"status_code": status, "status_msg": "rate limit exceeded"}}
		if status == 2013 {
			resp["base_resp"] = map[string]any{"status_code": status, "status_msg": "invalid params"}
		}
		if status == 0 {
			resp["data"] = map[string]any{"audio": (*server).URL + "/audio.wav"}
			resp["extra_info"] = map[string]any{"audio_length": 1000}
		}
		out, _ := sonic.Marshal(resp)
		w.Header().Set("Content-Type", "application/json")
		w.Write(out)
	})
	mux.HandleFunc("/audio.wav", func(w http.ResponseWriter, r *http.Request) {
		f.downloads.Add(1)
		if f.audioErr {
			http.NotFound(w, r)
			return
		}
		w.Write(f.audio)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeAPI) *MiniMax {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(f.handler(&server))
	t.Cleanup(server.Close)

	opts := DefaultOptions()
	opts.RetryDelay = time.Millisecond
	opts.DownloadDelay = time.Millisecond
	creds := config.Credentials{GroupID: "group", APIKey: "key", Endpoint: server.URL}
	return NewMiniMax(apihttp.NewDefaultClient(), opts, creds, NewThrottle(0), media.NewWAVCodec())
}

func TestMiniMax_Success(t *testing.T) {
	f := &fakeAPI{t: t, audio: speechWAV(t)}
	m := newTestClient(t, f)

	res := m.Synthesize(context.Background(), Request{Text: "你好", Voice: "v1", Emotion: "happy", Speed: 1.2})
	if !res.OK() {
		t.Fatalf("Synthesize() failed: %v (%s)", res.Err, res.Failure)
	}
	if res.DurationMs != 600 {
		t.Errorf("DurationMs = %d, want 600 after trimming", res.DurationMs)
	}
	if res.APIDurationMs != 1000 {
		t.Errorf("APIDurationMs = %d, want 1000", res.APIDurationMs)
	}
	if res.TraceID != "trace-1" {
		t.Errorf("TraceID = %q, want trace-1", res.TraceID)
	}

	got := f.last
	if got.GroupID != "group" || got.Model != config.DefaultTTSModel || got.OutputFormat != "url" {
		t.Errorf("payload = %+v", got)
	}
	if got.VoiceSetting.VoiceID != "v1" || got.VoiceSetting.Speed != 1.2 || got.VoiceSetting.Emotion != "happy" {
		t.Errorf("voice_setting = %+v", got.VoiceSetting)
	}
	if got.AudioSetting.SampleRate != 32000 || got.AudioSetting.Bitrate != 128000 || got.AudioSetting.Format != "mp3" {
		t.Errorf("audio_setting = %+v", got.AudioSetting)
	}
}

func TestMiniMax_EmotionOmitted(t *testing.T) {
	for _, label := range []string{"auto", "neutral", ""} {
		f := &fakeAPI{t: t, audio: speechWAV(t)}
		newTestClient(t, f).Synthesize(context.Background(), Request{Text: "hi", Emotion: label, Speed: 1})
		if f.last.VoiceSetting.Emotion != "" {
			t.Errorf("emotion %q sent as %q, want omitted", label, f.last.VoiceSetting.Emotion)
		}
	}
}

func TestMiniMax_RateLimitRetries(t *testing.T) {
	f := &fakeAPI{t: t, audio: speechWAV(t), statuses: []int{1002, 1002}}
	res := newTestClient(t, f).Synthesize(context.Background(), Request{Text: "hi", Speed: 1})
	if !res.OK() {
		t.Fatalf("Synthesize() failed: %v", res.Err)
	}
	if n := f.calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
	if res.TraceID != "trace-3" {
		t.Errorf("TraceID = %q, want trace-3", res.TraceID)
	}
}

func TestMiniMax_RateLimitExhausted(t *testing.T) {
	f := &fakeAPI{t: t, statuses: []int{1002, 1002, 1002, 1002, 1002}}
	res := newTestClient(t, f).Synthesize(context.Background(), Request{Text: "hi", Speed: 1})
	if res.OK() || res.Failure != FailureRateLimited {
		t.Errorf("result = ok %v failure %q, want rate_limited", res.OK(), res.Failure)
	}
	if n := f.calls.Load(); n != 4 {
		t.Errorf("calls = %d, want 4", n)
	}
}

func TestMiniMax_APIErrorNotRetried(t *testing.T) {
	f := &fakeAPI{t: t, statuses: []int{2013}}
	res := newTestClient(t, f).Synthesize(context.Background(), Request{Text: "hi", Speed: 1})
	if res.Failure != FailureAPI {
		t.Errorf("Failure = %q, want api", res.Failure)
	}
	var apiErr *APIError
	if !errors.As(res.Err, &apiErr) || apiErr.Code != 2013 {
		t.Errorf("Err = %v, want APIError 2013", res.Err)
	}
	if n := f.calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestMiniMax_DownloadFailureKeepsTrace(t *testing.T) {
	f := &fakeAPI{t: t, audioErr: true}
	res := newTestClient(t, f).Synthesize(context.Background(), Request{Text: "hi", Speed: 1})
	if res.OK() || res.Failure != FailureDownload {
		t.Errorf("result = ok %v failure %q, want download", res.OK(), res.Failure)
	}
	if res.TraceID != "trace-1" {
		t.Errorf("TraceID = %q, want trace-1", res.TraceID)
	}
	if n := f.downloads.Load(); n != 3 {
		t.Errorf("downloads = %d, want 3", n)
	}
}

func TestMiniMax_NoCredentialsUsesMock(t *testing.T) {
	m := NewMiniMax(nil, DefaultOptions(), config.Credentials{}, NewThrottle(0), media.NewWAVCodec())
	res := m.Synthesize(context.Background(), Request{Text: "你好", Speed: 1.5})
	if !res.OK() || !res.Mock {
		t.Fatalf("Synthesize() = ok %v mock %v, want mock audio", res.OK(), res.Mock)
	}
	if res.DurationMs != 200 || res.TraceID != "" {
		t.Errorf("mock = %dms trace %q, want 200ms and no trace", res.DurationMs, res.TraceID)
	}
}

func TestMockDurationMs(t *testing.T) {
	tests := []struct {
		text  string
		speed float64
		want  int64
	}{
		{"", 1, 300},
		{"abcdefghij", 1, 800},
		{"abcdefghij", 2, 400},
		{"你好", 1.5, 200},
	}
	for _, tt := range tests {
		if got := MockDurationMs(tt.text, tt.speed); got != tt.want {
			t.Errorf("MockDurationMs(%q, %v) = %d, want %d", tt.text, tt.speed, got, tt.want)
		}
	}
}

func TestThrottle(t *testing.T) {
	th := NewThrottle(40 * time.Millisecond)
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := th.Wait(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("three waits took %v, want at least 80ms", elapsed)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	th2 := NewThrottle(time.Hour)
	th2.Wait(ctx)
	if err := th2.Wait(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() on cancelled ctx = %v, want context.Canceled", err)
	}
}
