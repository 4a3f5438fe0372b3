// Package suggest talks to the public autocomplete endpoint. The client is a
// total-failure boundary: every problem on the wire becomes an empty result.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FranksOps/adblast/internal/bypass"
	"github.com/FranksOps/adblast/internal/fingerprint"
	"github.com/FranksOps/adblast/internal/metrics"
	"github.com/FranksOps/adblast/pkg/httpclient"
	"github.com/FranksOps/adblast/pkg/proxy"
	"github.com/FranksOps/adblast/pkg/ratelimit"
	"github.com/FranksOps/adblast/pkg/useragent"
	"golang.org/x/net/html/charset"
)

const (
	DefaultURL      = "https://suggestqueries.google.com/complete/search"
	DefaultClientID = "firefox"
	DefaultLanguage = "pt-BR"
	DefaultTimeout  = 5 * time.Second

	maxBodyBytes = 1 << 20
)

type contextKey string

const proxyKey contextKey = "proxy_url"

var errShape = errors.New("unexpected payload shape")

// Config configures the oracle client.
type Config struct {
	BaseURL     string
	ClientID    string
	Language    string
	Timeout     time.Duration
	UAPool      *useragent.Pool
	ProxyPool   *proxy.Pool
	Limiter     *ratelimit.Limiter
	Fingerprint fingerprint.Profile
}

// Client issues single autocomplete queries. Build one per process and share
// it; it holds no per-request state.
type Client struct {
	cfg       Config
	http      *httpclient.Client
	logger    *slog.Logger
	detectors []bypass.Detector
}

// New builds the client and its transport.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultURL
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("suggest: invalid base url: %w", err)
	}

	// The proxy for a call travels in the request context so one shared
	// transport can rotate egress per request.
	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if u, ok := req.Context().Value(proxyKey).(*url.URL); ok && u != nil {
			return u, nil
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
	if err != nil {
		return nil, fmt.Errorf("suggest: failed to setup transport: %w", err)
	}

	hc, err := httpclient.New(httpclient.Config{
		Timeout:   cfg.Timeout,
		Transport: transport,
		Headers: http.Header{
			"Accept":          {"application/json, text/javascript, */*; q=0.01"},
			"Accept-Language": {cfg.Language + ",pt;q=0.9,en;q=0.5"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("suggest: failed to create client: %w", err)
	}

	return &Client{
		cfg:       cfg,
		http:      hc,
		logger:    logger,
		detectors: bypass.DefaultDetectors(),
	}, nil
}

// Fetch returns the oracle's suggestions for q in oracle order. It never
// fails: any problem yields an empty, non-nil slice.
func (c *Client) Fetch(ctx context.Context, q Query) []string {
	if !q.Valid() {
		return []string{}
	}
	text := q.Text()

	if err := c.cfg.Limiter.Wait(ctx); err != nil {
		c.logger.Debug("oracle call skipped", "query", text, "err", err)
		return []string{}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	suggestions, outcome := c.do(ctx, text)
	elapsed := time.Since(start)
	metrics.RecordOracle(outcome, elapsed)

	c.logger.Debug("oracle call",
		"query", text,
		"outcome", outcome,
		"suggestions", len(suggestions),
		"duration", elapsed,
	)
	return suggestions
}

func (c *Client) do(ctx context.Context, text string) ([]string, string) {
	empty := []string{}

	params := url.Values{}
	params.Set("q", text)
	params.Set("client", c.cfg.ClientID)
	params.Set("hl", c.cfg.Language)
	params.Set("oe", "utf-8")

	sep := "?"
	if strings.Contains(c.cfg.BaseURL, "?") {
		sep = "&"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+sep+params.Encode(), nil)
	if err != nil {
		return empty, metrics.OutcomeError
	}
	req.Header.Set("User-Agent", c.cfg.UAPool.Pick())

	activeProxy := c.cfg.ProxyPool.Next()
	if activeProxy != nil {
		req = req.WithContext(context.WithValue(req.Context(), proxyKey, activeProxy))
	}

	resp, err := c.http.Do(req.Context(), req)
	if err != nil {
		if activeProxy != nil {
			metrics.ProxyFailures.WithLabelValues(activeProxy.Host).Inc()
		}
		c.logger.Debug("oracle transport failure", "query", text, "err", err)
		return empty, metrics.OutcomeError
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return empty, metrics.OutcomeError
	}

	if blocked, source := bypass.Analyze(&bypass.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       raw,
	}, c.detectors); blocked {
		metrics.OracleBlockedTotal.WithLabelValues(source).Inc()
		c.logger.Warn("oracle refused request", "source", source, "status", resp.StatusCode, "query", text)
		return empty, metrics.OutcomeBlocked
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return empty, metrics.OutcomeStatus
	}

	suggestions, err := parsePayload(decode(raw, resp.Header.Get("Content-Type")))
	if err != nil {
		c.logger.Debug("oracle payload rejected", "query", text, "err", err)
		return empty, metrics.OutcomeDecode
	}
	if len(suggestions) == 0 {
		return suggestions, metrics.OutcomeEmpty
	}
	return suggestions, metrics.OutcomeOK
}

// decode converts the body to UTF-8 using the declared charset. The firefox
// client answers in ISO-8859-1 for some locales even when asked for UTF-8.
func decode(raw []byte, contentType string) []byte {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return raw
	}
	if cs := strings.ToLower(params["charset"]); cs == "" || cs == "utf-8" || cs == "utf8" {
		return raw
	}
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return raw
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return raw
	}
	return out
}

// parsePayload extracts element [1] of ["query", ["s1", "s2", ...], ...].
func parsePayload(data []byte) ([]string, error) {
	var envelope []json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", errShape, err)
	}
	if len(envelope) < 2 {
		return nil, fmt.Errorf("%w: %d elements", errShape, len(envelope))
	}

	var items []string
	if err := json.Unmarshal(envelope[1], &items); err != nil {
		return nil, fmt.Errorf("%w: %v", errShape, err)
	}

	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
