// Package httpx provides the retrying JSON HTTP client shared by source and intake adapters
package httpx

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	perr "connectors/internal/platform/errors"
	"connectors/internal/platform/logger"

	"github.com/goccy/go-json"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUA        = "intake-connector"
	defaultMaxRetry  = 5
	defaultRetryBase = 500 * time.Millisecond
	defaultRetryCap  = 30 * time.Second
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Token is sent as "<AuthScheme> <Token>"; empty means no Authorization header
	Token      string
	AuthScheme string
	// Headers are added to every request, e.g. vendor API key headers
	Headers map[string]string

	// Retry config for transport errors, 429 and 5xx
	MaxRetries int
	RetryBase  time.Duration
	RetryCap   time.Duration

	// Name shows up in logs as the client component
	Name string
}

// Client is a small JSON client with capped exponential backoff and Retry-After support
type Client struct {
	http  *http.Client
	opts  Options
	log   *logger.Logger
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New creates a Client with sane defaults
func New(o Options) *Client {
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.RetryCap <= 0 {
		o.RetryCap = defaultRetryCap
	}
	if o.AuthScheme == "" {
		o.AuthScheme = "Bearer"
	}
	if o.Name == "" {
		o.Name = "httpx"
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   logger.Named(o.Name),
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// WithHTTPClient swaps the underlying transport, mostly for tests
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// Do issues a request with auth headers and retries, returning a 2xx response
// path is joined onto BaseURL unless it is an absolute URL, which is requested as is
// the caller closes the body; a non retryable status comes back as *StatusError
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Response, error) {
	target, own := c.target(path)
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + query.Encode()
	}
	path = redact(path)

	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, target, bytesReader(body))
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "%s new request", c.opts.Name)
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if own {
			if c.opts.Token != "" {
				req.Header.Set("Authorization", c.opts.AuthScheme+" "+c.opts.Token)
			}
			for k, v := range c.opts.Headers {
				req.Header.Set(k, v)
			}
		}

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !c.shouldRetry(attempts) {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s %s %s", c.opts.Name, method, path)
			}
			back := c.backoff(attempts)
			c.log.Warn().Err(err).Dur("retry_in", back).Int("attempt", attempts).Msg("transport error retrying")
			if err := c.sleep(ctx, back); err != nil {
				return nil, err
			}
			attempts++
			continue
		}

		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), c.now())
		c.log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Int("attempt", attempts).
			Dur("latency", lat).
			Dur("retry_after", retryAfter).
			Msg("http response")

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		if retryable(resp.StatusCode) && c.shouldRetry(attempts) {
			wait := retryAfter
			if wait <= 0 {
				wait = c.backoff(attempts)
			}
			wait = min(wait, c.opts.RetryCap)
			_ = drainAndClose(resp.Body)
			c.log.Warn().Int("status", resp.StatusCode).Dur("retry_in", wait).Int("attempt", attempts).Msg("retryable status backing off")
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			attempts++
			continue
		}

		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		_ = resp.Body.Close()
		return nil, newStatusError(c.opts.Name, method, path, resp.StatusCode, string(tail))
	}
}

// GetJSON issues a GET and decodes the body into out
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

// PostJSON encodes in, POSTs it and decodes the response into out when out is not nil
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode request body")
	}
	resp, err := c.Do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return err
	}
	if out == nil {
		return drainAndClose(resp.Body)
	}
	return decode(resp, out)
}

// Download issues a GET and returns the raw body
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "read %s", redact(path))
	}
	return b, nil
}

func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "decode response body")
	}
	return nil
}

// target resolves path; own is false for absolute URLs on another host,
// which never receive the client's credentials
func (c *Client) target(path string) (string, bool) {
	u, err := url.Parse(path)
	if err != nil || !u.IsAbs() {
		return c.opts.BaseURL + path, true
	}
	base, err := url.Parse(c.opts.BaseURL)
	return path, err == nil && base.Host == u.Host
}

// redact drops the query of an absolute URL so signed links stay out of logs and errors
func redact(path string) string {
	u, err := url.Parse(path)
	if err != nil || !u.IsAbs() {
		return path
	}
	u.RawQuery, u.User = "", nil
	return u.String()
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.RetryBase << uint(min(attempt, 16))
	if d <= 0 || d > c.opts.RetryCap {
		return c.opts.RetryCap
	}
	return d
}

func (c *Client) shouldRetry(attempt int) bool {
	return attempt < c.opts.MaxRetries
}

func bytesReader(b []byte) io.Reader {
	if b == nil {
		return nil
	}
	return bytes.NewReader(b)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
