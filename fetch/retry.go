// Package fetch wraps one upstream call per (market, granularity) with
// bounded retries, fixed backoff and a terminal fallback, so a driver
// cycle never crashes on upstream failure.
package fetch

import (
	"strings"
	"time"

	"stockdata/core"
	"stockdata/errs"
	"stockdata/frame"
	"stockdata/log"

	"go.uber.org/zap"
)

// Source tags where a result actually came from. Synthetic and snapshot
// results must never be mistaken for live data by callers.
type Source string

const (
	SourceLive      Source = "live"
	SourceSnapshot  Source = "snapshot"
	SourceSynthetic Source = "synthetic"
)

type Result struct {
	Frame    *frame.Frame
	Source   Source
	Attempts int
}

// Request is one parameterization of the upstream call. Controllers may
// rotate through several symbol spellings and option sets across
// attempts: when the failure mode is ambiguous (rate limit vs malformed
// symbol) varying the ask is cheaper than guessing.
type Request struct {
	Symbol  string
	Options map[string]interface{}
}

type Func func(req *Request) (*frame.Frame, *errs.Error)

type Controller struct {
	Label      string // for logging, e.g. "hk.day"
	MaxRetries int
	Interval   time.Duration
	Symbols    []string                 // symbol formats, rotated per attempt
	Options    []map[string]interface{} // option sets, rotated per attempt

	// Fallback runs after the last failed attempt. Nil means the cycle
	// fails outright (realtime minute drivers).
	Fallback func() (*frame.Frame, Source, *errs.Error)

	sleep func(time.Duration) // test hook
}

func NewController(label string, maxRetries, intervalSecs int) *Controller {
	if maxRetries <= 0 {
		maxRetries = core.DefRetryNum
	}
	if intervalSecs <= 0 {
		intervalSecs = core.DefRetryWaitS
	}
	return &Controller{
		Label:      label,
		MaxRetries: maxRetries,
		Interval:   time.Duration(intervalSecs) * time.Second,
		sleep:      time.Sleep,
	}
}

// Run performs at most MaxRetries live attempts with a fixed interval
// between them, then the fallback. It always terminates; the result is
// provenance-tagged so fallback output is distinguishable from live.
func (c *Controller) Run(fn Func) (*Result, *errs.Error) {
	var lastErr *errs.Error
	for attempt := 0; attempt < c.MaxRetries; attempt++ {
		req := c.request(attempt)
		f, err := fn(req)
		if err == nil && !f.Empty() {
			return &Result{Frame: f, Source: SourceLive, Attempts: attempt + 1}, nil
		}
		if err == nil {
			err = errs.NewMsg(core.ErrEmptyResult, "empty result for %s", req.Symbol)
		}
		lastErr = err
		if err.Code == core.ErrNonDataResponse {
			log.Warn("provider returned a non-data response, likely rate limited",
				zap.String("job", c.Label), zap.String("symbol", req.Symbol),
				zap.Int("attempt", attempt+1), zap.Int("max", c.MaxRetries))
		} else {
			log.Warn("fetch attempt failed",
				zap.String("job", c.Label), zap.String("symbol", req.Symbol),
				zap.Int("attempt", attempt+1), zap.Int("max", c.MaxRetries),
				zap.String("err", err.Short()))
		}
		c.sleep(c.Interval)
	}
	if c.Fallback == nil {
		return nil, lastErr
	}
	log.Warn("retries exhausted, using fallback", zap.String("job", c.Label))
	f, src, err := c.Fallback()
	if err != nil {
		return nil, err
	}
	return &Result{Frame: f, Source: src, Attempts: c.MaxRetries}, nil
}

func (c *Controller) request(attempt int) *Request {
	req := &Request{}
	if len(c.Symbols) > 0 {
		req.Symbol = c.Symbols[attempt%len(c.Symbols)]
	}
	if len(c.Options) > 0 {
		req.Options = c.Options[attempt%len(c.Options)]
	}
	return req
}

// IsMarkup reports whether an upstream payload looks like HTML instead
// of structured data, the usual shape of a rate-limit or block page.
func IsMarkup(body string) bool {
	s := strings.TrimSpace(body)
	if s == "" {
		return false
	}
	low := strings.ToLower(s)
	return strings.HasPrefix(low, "<!doctype") || strings.HasPrefix(low, "<html") ||
		strings.Contains(low[:min(len(low), 512)], "<head")
}
