// internal/adapters/places/transport.go
package places

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"market_intel/internal/adapters/observability"
	"market_intel/internal/domain"
)

// Options configure the HTTP side of an adapter. Zero values get defaults.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RPS        int
	HTTPClient *http.Client
	Now        func() time.Time
}

// transport issues exactly one GET per call: client-side rate limiting and
// error classification, no retries. Retry policy belongs to the caller.
type transport struct {
	provider domain.Source
	base     string
	hc       *http.Client
	rl       *rate.Limiter
	now      func() time.Time
}

func newTransport(provider domain.Source, defaultBase string, o Options) *transport {
	base := strings.TrimRight(o.BaseURL, "/")
	if base == "" {
		base = defaultBase
	}
	rps := o.RPS
	if rps <= 0 {
		rps = 5
	}
	hc := o.HTTPClient
	if hc == nil {
		timeout := o.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	now := o.Now
	if now == nil {
		now = time.Now
	}
	return &transport{
		provider: provider,
		base:     base,
		hc:       hc,
		rl:       rate.NewLimiter(rate.Limit(rps), rps),
		now:      now,
	}
}

// getJSON performs a GET on base+path and decodes a 2xx body into out.
func (t *transport) getJSON(ctx context.Context, path, rawQuery string, hdr http.Header, out any) error {
	if err := t.rl.Wait(ctx); err != nil {
		return &domain.TransportError{Provider: t.provider, Err: err}
	}

	u := t.base + path
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &domain.ConfigurationError{Provider: t.provider, Reason: "bad request url: " + err.Error()}
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "market-intel/1.0")

	start := time.Now()
	resp, err := t.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(string(t.provider), path, 0, time.Since(start))
		return &domain.TransportError{Provider: t.provider, Err: err}
	}
	defer resp.Body.Close()
	observability.ObserveExternal(string(t.provider), path, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNoContent:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			// a deadline hit while streaming the body is a transport problem
			var ne net.Error
			if ctx.Err() != nil || (errors.As(err, &ne) && ne.Timeout()) {
				return &domain.TransportError{Provider: t.provider, Err: err}
			}
			return &domain.ProviderError{Provider: t.provider, Status: resp.StatusCode, Malformed: true, Err: err}
		}
		return nil

	default:
		// read a small error body for diagnostics
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		pe := &domain.ProviderError{
			Provider:   t.provider,
			Status:     resp.StatusCode,
			RetryAfter: retryAfter(resp),
		}
		if msg := strings.TrimSpace(string(b)); msg != "" {
			pe.Err = errors.New(msg)
		}
		return pe
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func missingKey(p domain.Source, env string) error {
	return &domain.ConfigurationError{Provider: p, Reason: env + " is not set"}
}
