package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Veraticus/the-glossary-must-flow/internal/common"
	"github.com/Veraticus/the-glossary-must-flow/internal/config"
	"github.com/Veraticus/the-glossary-must-flow/internal/observe"
)

// DefaultTimeout is the read timeout used when none is configured.
const DefaultTimeout = 120 * time.Second

// GatewayOptions configures a Gateway.
type GatewayOptions struct {
	Logger  *slog.Logger
	Metrics *observe.Metrics
	// HTTPClient replaces the pooled client built from Timeout.
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Gateway sends chat requests to one configured platform.
type Gateway struct {
	platform   config.Platform
	logger     *slog.Logger
	metrics    *observe.Metrics
	httpClient *http.Client
	clients    *clientCache
	keys       keyRotator
	timeout    time.Duration
}

// NewGateway creates a gateway for platform.
func NewGateway(platform config.Platform, opts GatewayOptions) (*Gateway, error) {
	if err := config.ValidatePlatform(platform); err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient(timeout)
	}
	return &Gateway{
		platform:   platform,
		logger:     common.LoggerOrDefault(opts.Logger),
		metrics:    opts.Metrics,
		httpClient: httpClient,
		clients:    newClientCache(),
		timeout:    timeout,
	}, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 64,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Platform returns the configured platform.
func (g *Gateway) Platform() config.Platform {
	return g.platform
}

// Reset rewinds key rotation and drops cached clients.
func (g *Gateway) Reset() {
	g.keys.reset()
	g.clients.clear()
}

// Send performs one request. Failures are logged and reported as Skip.
func (g *Gateway) Send(ctx context.Context, messages []Message, kind TaskKind) Response {
	base := g.platform.Base()
	vendor := config.VendorOf(g.platform)
	key := g.keys.pick(base.Keys)
	params := SamplingFor(kind, base.Sampling)
	start := time.Now()

	var (
		resp Response
		err  error
	)
	switch p := g.platform.(type) {
	case *config.OpenAIPlatform:
		resp, err = g.sendOpenAI(ctx, p.PlatformBase, key, messages, params)
	case *config.SakuraPlatform:
		resp, err = g.sendSakura(ctx, p.PlatformBase, key, messages, params)
	case *config.GooglePlatform:
		resp, err = g.sendGoogle(ctx, p, key, messages, params)
	case *config.AnthropicPlatform:
		resp, err = g.sendAnthropic(ctx, p, key, messages, params)
	default:
		err = fmt.Errorf("unsupported platform type %T", p)
	}

	elapsed := time.Since(start)
	if err != nil {
		g.logger.Warn("Model request failed",
			"platform", base.Name,
			"vendor", vendor,
			"kind", kind,
			"duration", elapsed,
			"error", err)
		g.metrics.RecordRequest(ctx, string(vendor), string(kind), observe.StatusSkipped, elapsed, 0, 0)
		return Response{Skip: true}
	}

	status := observe.StatusOK
	if resp.Degraded {
		status = observe.StatusDegraded
	}
	g.metrics.RecordRequest(ctx, string(vendor), string(kind), status, elapsed, resp.InputTokens, resp.OutputTokens)
	g.logger.Debug("Model request complete",
		"platform", base.Name,
		"kind", kind,
		"duration", elapsed,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"degraded", resp.Degraded)
	return resp
}
