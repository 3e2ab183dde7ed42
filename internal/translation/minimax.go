package translation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
	apihttp "github.com/backearth1/MiniMax-TTS-Translation/internal/http"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/logger"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/text"
)

type chatRequest struct {
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
	Messages    []message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	TraceID  string `json:"trace_id"`
	TraceID2 string `json:"traceId"`
	BaseResp struct {
		StatusCode int    `json:"status_code"`
		StatusMsg  string `json:"status_msg"`
	} `json:"base_resp"`
}

// MiniMax translates through the MiniMax chat completion endpoint.
type MiniMax struct {
	client   *resty.Client
	creds    config.Credentials
	model    string
	glossary Glossary
	sink     logger.Sink
}

// NewMiniMax creates a client. Without valid credentials every call fails
// with FailureUnavailable.
func NewMiniMax(client *resty.Client, creds config.Credentials) *MiniMax {
	if client == nil {
		client = apihttp.NewRestyClient(apihttp.ClientConfig{
			Timeout:             config.TranslationTimeout,
			MaxIdleConns:        config.HTTPMaxIdleConns,
			MaxIdleConnsPerHost: config.HTTPMaxIdleConnsPerHost,
			IdleConnTimeout:     config.HTTPIdleConnTimeout,
			UserAgent:           config.HTTPUserAgent,
		})
	}
	return &MiniMax{client: client, creds: creds, model: config.TranslationModel, sink: logger.Discard}
}

// SetGlossary sets terms applied to Translate calls.
func (m *MiniMax) SetGlossary(g Glossary) {
	m.glossary = g
}

// SetSink routes progress events to s.
func (m *MiniMax) SetSink(s logger.Sink) {
	if s == nil {
		s = logger.Discard
	}
	m.sink = s
}

// Translate renders text in language.
func (m *MiniMax) Translate(ctx context.Context, src, language string) Result {
	if strings.TrimSpace(src) == "" {
		return Result{Failure: FailureBadResponse, Err: errors.New("empty text")}
	}
	logger.Notify(m.sink, logger.EventInfo, "Translating", "to %s: %s", language, text.Preview(src, 30))
	return m.complete(ctx, translateMessages(src, language, m.glossary))
}

// Shorten asks for a translation short enough to fit req.TargetMs.
func (m *MiniMax) Shorten(ctx context.Context, req ShortenRequest) Result {
	current := text.CharCount(req.Current)
	target := TargetChars(current, req.CurrentMs, req.TargetMs)
	if req.Glossary == nil {
		req.Glossary = m.glossary
	}
	logger.Notify(m.sink, logger.EventInfo, "Shortening translation", "%d -> under %d characters (%dms -> %dms)", current, target, req.CurrentMs, req.TargetMs)
	return m.complete(ctx, shortenMessages(req, current, target))
}

// Adjust resizes req.Current by the mode's ratio.
func (m *MiniMax) Adjust(ctx context.Context, req AdjustRequest) Result {
	if !req.Mode.Valid() {
		return Result{Failure: FailureBadResponse, Err: fmt.Errorf("unknown adjustment mode %q", req.Mode)}
	}
	current := text.CharCount(req.Current)
	target := max(int(float64(current)*req.Mode.Ratio()+0.5), 1)
	if req.Glossary == nil {
		req.Glossary = m.glossary
	}
	logger.Notify(m.sink, logger.EventInfo, "Adjusting text", "%s: %d -> %d characters", req.Mode, current, target)
	return m.complete(ctx, adjustMessages(req, current, target, config.CharBudgetTolerance))
}

func (m *MiniMax) complete(ctx context.Context, messages []message) Result {
	if !m.creds.Valid() {
		return Result{Failure: FailureUnavailable, Err: errors.New("translation credentials are not configured")}
	}

	resp, err := m.client.R().
		SetContext(ctx).
		SetAuthToken(m.creds.APIKey).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("GroupId", m.creds.GroupID).
		SetBody(chatRequest{
			Model:       m.model,
			Temperature: config.TranslationTemperature,
			TopP:        config.TranslationTopP,
			Messages:    messages,
		}).
		Post(m.creds.BaseURL() + config.ChatPath)
	if err != nil {
		logger.Notify(m.sink, logger.EventError, "Translation request failed", "%v", err)
		return Result{Failure: FailureTransport, Err: err}
	}

	traceID := resp.Header().Get("X-Trace-Id")
	if traceID == "" {
		traceID = resp.Header().Get("Trace-Id")
	}

	if resp.StatusCode() != http.StatusOK {
		err := &apihttp.StatusError{Code: resp.StatusCode(), Body: resp.String()}
		logger.Notify(m.sink, logger.EventError, "Translation API error", "%v", err)
		return Result{TraceID: traceID, Failure: FailureAPI, Err: err}
	}

	var out chatResponse
	if err := sonic.Unmarshal(resp.Body(), &out); err != nil {
		return Result{TraceID: traceID, Failure: FailureBadResponse, Err: fmt.Errorf("invalid chat response: %w", err)}
	}
	if traceID == "" {
		traceID = out.TraceID
	}
	if traceID == "" {
		traceID = out.TraceID2
	}
	if out.BaseResp.StatusCode != 0 {
		err := fmt.Errorf("minimax error %d: %s", out.BaseResp.StatusCode, out.BaseResp.StatusMsg)
		logger.Notify(m.sink, logger.EventError, "Translation API error", "%v, trace %s", err, traceID)
		return Result{TraceID: traceID, Failure: FailureAPI, Err: err}
	}
	if len(out.Choices) == 0 {
		return Result{TraceID: traceID, Failure: FailureBadResponse, Err: errors.New("response has no choices")}
	}

	result := text.CleanModelOutput(out.Choices[0].Message.Content)
	if result == "" {
		return Result{TraceID: traceID, Failure: FailureBadResponse, Err: errors.New("response content is empty")}
	}

	logger.Notify(m.sink, logger.EventSuccess, "Translation done", "trace %s", traceID)
	return Result{Text: result, TraceID: traceID}
}
