// Package clients holds the HTTP callers one service uses to reach another.
// Reads retry with linear backoff; mutating calls are attempted once.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrUnavailable covers timeouts, dial errors and 5xx answers.
	ErrUnavailable = errors.New("upstream unavailable")
	ErrNotFound    = errors.New("upstream resource not found")
)

// RemoteError is a business rejection (4xx) reported by the other service.
type RemoteError struct {
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error status=%d code=%s: %s", e.Status, e.Code, e.Message)
}

// HasCode reports whether err is a RemoteError carrying code.
func HasCode(err error, code string) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Code == code
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Options configure a client. Zero values fall back to sane defaults.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	ReadRetries int
	Backoff     time.Duration
	Token       string
	HTTPClient  *http.Client
	Loggerf     func(format string, args ...interface{})
}

type caller struct {
	baseURL string
	timeout time.Duration
	retries int
	backoff time.Duration
	token   string
	http    *http.Client
	logf    func(format string, args ...interface{})
}

func newCaller(o Options) *caller {
	c := &caller{
		baseURL: strings.TrimRight(o.BaseURL, "/"),
		timeout: o.Timeout,
		retries: o.ReadRetries,
		backoff: o.Backoff,
		token:   o.Token,
		http:    o.HTTPClient,
		logf:    o.Loggerf,
	}
	if c.timeout <= 0 {
		c.timeout = 5 * time.Second
	}
	if c.retries < 0 {
		c.retries = 0
	}
	if c.backoff <= 0 {
		c.backoff = 200 * time.Millisecond
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.logf == nil {
		c.logf = func(string, ...interface{}) {}
	}
	return c
}

// read performs an idempotent GET, retrying ErrUnavailable.
func (c *caller) read(ctx context.Context, path string, out interface{}) error {
	var err error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * c.backoff
			c.logf("level=warn msg=\"retrying upstream read\" path=%s attempt=%d wait=%s err=%v", path, attempt, wait, err)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(wait):
			}
		}
		err = c.once(ctx, http.MethodGet, path, nil, out)
		if err == nil || !errors.Is(err, ErrUnavailable) {
			return err
		}
	}
	return err
}

// write performs a single mutating call.
func (c *caller) write(ctx context.Context, method, path string, body, out interface{}) error {
	return c.once(ctx, method, path, body, out)
}

func (c *caller) once(ctx context.Context, method, path string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s %s status=%d", ErrUnavailable, method, path, resp.StatusCode)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		re := &RemoteError{Status: resp.StatusCode}
		if env.Error != nil {
			re.Code = env.Error.Code
			re.Message = env.Error.Message
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %v", ErrNotFound, re)
		}
		return re
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s %s data: %w", method, path, err)
		}
	}
	return nil
}
