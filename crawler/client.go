package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/poiesic/gamescout/core"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	// DefaultAppListURL is the catalog listing endpoint.
	DefaultAppListURL = "https://api.steampowered.com/ISteamApps/GetAppList/v0002/"
	// DefaultDetailURL is the per-item detail endpoint.
	DefaultDetailURL = "https://store.steampowered.com/api/appdetails"

	defaultTimeout = 30 * time.Second
)

// Client talks to the catalog listing and detail APIs.
// A single Client is shared by all fetch workers; it is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	appListURL string
	detailURL  string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithProxy routes every call through an HTTP forward proxy.
// proxy is "host:port" (a scheme is optional); auth is "user:password" or empty.
func WithProxy(proxy, auth string) Option {
	return func(c *Client) error {
		if proxy == "" {
			return nil
		}
		proxyURL, err := buildProxyURL(proxy, auth)
		if err != nil {
			return err
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		c.httpClient.Transport = transport
		return nil
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		if client == nil {
			return errors.New("crawler: nil http client")
		}
		c.httpClient = client
		return nil
	}
}

// WithTimeout sets the per-call timeout. A timed-out call is transient.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		c.httpClient.Timeout = timeout
		return nil
	}
}

// WithRateLimit caps outbound calls at rps per second across all workers.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) error {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return nil
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// WithCircuitBreaker trips after consecutiveFailures transient failures in a
// row and rejects calls for cooldown before probing again. Rejected calls
// are reported as transient so the retry wrapper backs off.
func WithCircuitBreaker(consecutiveFailures uint32, cooldown time.Duration) Option {
	return func(c *Client) error {
		if consecutiveFailures == 0 {
			c.breaker = nil
			return nil
		}
		c.breaker = newBreaker(consecutiveFailures, cooldown, c.logger)
		return nil
	}
}

// WithEndpoints overrides the listing and detail URLs.
func WithEndpoints(appListURL, detailURL string) Option {
	return func(c *Client) error {
		if appListURL != "" {
			c.appListURL = appListURL
		}
		if detailURL != "" {
			c.detailURL = detailURL
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger.With("component", "crawler")
		return nil
	}
}

// NewClient creates a catalog client.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		appListURL: DefaultAppListURL,
		detailURL:  DefaultDetailURL,
		limiter:    rate.NewLimiter(rate.Inf, 0),
		logger:     slog.Default().With("component", "crawler"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func newBreaker(consecutiveFailures uint32, cooldown time.Duration, logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "detail-api",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
}

func buildProxyURL(proxy, auth string) (*url.URL, error) {
	raw := proxy
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("crawler: invalid proxy %q: %w", proxy, err)
	}
	if auth != "" {
		user, pass, hasPass := strings.Cut(auth, ":")
		if hasPass {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}
	return u, nil
}

type appListResponse struct {
	AppList struct {
		Apps []core.CatalogEntry `json:"apps"`
	} `json:"applist"`
}

// FetchAppList retrieves the full catalog listing in one call.
func (c *Client) FetchAppList(ctx context.Context) ([]core.CatalogEntry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint, err := url.Parse(c.appListURL)
	if err != nil {
		return nil, err
	}
	q := endpoint.Query()
	q.Set("format", "json")
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransientError{StatusCode: resp.StatusCode, Cause: errors.New(resp.Status)}
	}

	var payload appListResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding app list: %w", err)
	}

	c.logger.Info("fetched app list", "apps", len(payload.AppList.Apps))
	return payload.AppList.Apps, nil
}

// detailEnvelope is one entry of the detail response, keyed by app id.
type detailEnvelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// FetchDetail issues exactly one detail call for id and classifies it.
func (c *Client) FetchDetail(ctx context.Context, id core.AppID) DetailResult {
	if c.breaker == nil {
		return c.fetchDetail(ctx, id)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		result := c.fetchDetail(ctx, id)
		if result.Outcome == Transient {
			return result, result.Err
		}
		return result, nil
	})
	if err != nil {
		if result, ok := out.(DetailResult); ok {
			return result
		}
		// Rejected by an open breaker; no call was made.
		return transientResult(0, err)
	}
	return out.(DetailResult)
}

func (c *Client) fetchDetail(ctx context.Context, id core.AppID) DetailResult {
	if err := c.limiter.Wait(ctx); err != nil {
		return transientResult(0, err)
	}

	endpoint, err := url.Parse(c.detailURL)
	if err != nil {
		return transientResult(0, err)
	}
	key := strconv.FormatInt(int64(id), 10)
	q := endpoint.Query()
	q.Set("appids", key)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return transientResult(0, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transientResult(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return transientResult(resp.StatusCode, errors.New(resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transientResult(resp.StatusCode, err)
	}

	var envelopes map[string]detailEnvelope
	if err := json.Unmarshal(body, &envelopes); err != nil {
		return transientResult(resp.StatusCode, fmt.Errorf("decoding detail envelope: %w", err))
	}

	env, ok := envelopes[key]
	if !ok || env.Success == nil || !*env.Success {
		return notFoundResult()
	}

	var detail core.AppDetail
	if err := json.Unmarshal(env.Data, &detail); err != nil {
		return transientResult(resp.StatusCode, fmt.Errorf("decoding detail data: %w", err))
	}
	if detail.SteamAppID == 0 {
		detail.SteamAppID = id
	}
	if err := core.ValidateAppDetail(&detail); err != nil {
		c.logger.Warn("discarding invalid detail", "appid", id, "err", err)
		return DetailResult{Outcome: NotFound, Err: fmt.Errorf("%w: %w", ErrNotFound, err)}
	}
	if detail.Website == "" {
		detail.Website = core.UnavailableMarker
	}
	detail.FetchedAt = time.Now().UTC()

	return foundResult(&detail)
}
