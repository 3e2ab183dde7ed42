// Package http provides the shared resty client and retry helpers for the
// remote speech and chat APIs.
package http

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/logger"
)

// RequestIDHeader carries a per-request id for correlating logs.
const RequestIDHeader = "X-Request-Id"

// ClientConfig configures the HTTP client behavior.
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	UserAgent           string
}

// DefaultClientConfig returns the default HTTP client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             config.HTTPTimeout,
		MaxIdleConns:        config.HTTPMaxIdleConns,
		MaxIdleConnsPerHost: config.HTTPMaxIdleConnsPerHost,
		IdleConnTimeout:     config.HTTPIdleConnTimeout,
		UserAgent:           config.HTTPUserAgent,
	}
}

// NewRestyClient creates a resty client with connection pooling and sonic
// JSON codecs. Reuse it across requests to the same host.
func NewRestyClient(cfg ClientConfig) *resty.Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetTransport(&http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
		}).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if req.Header.Get(RequestIDHeader) == "" {
			req.Header.Set(RequestIDHeader, uuid.NewString())
		}
		return nil
	})

	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		req := resp.Request
		if resp.StatusCode() > 299 {
			logger.Warn("HTTP %s %s -> %d (%s) id=%s", req.Method, req.URL, resp.StatusCode(), resp.Time(), req.Header.Get(RequestIDHeader))
		} else {
			logger.Debug("HTTP %s %s -> %d (%s)", req.Method, req.URL, resp.StatusCode(), resp.Time())
		}
		return nil
	})

	return client
}

// NewDefaultClient creates a resty client with default pooling settings.
func NewDefaultClient() *resty.Client {
	return NewRestyClient(DefaultClientConfig())
}
