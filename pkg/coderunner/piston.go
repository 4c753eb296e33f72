// Package coderunner wraps the external Piston execution API. Code runs in
// Piston's sandbox, never locally; this client only proxies requests and
// throttles them to stay inside the public API's rate limit.
package coderunner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL points at the public Piston instance.
const DefaultBaseURL = "https://emkc.org/api/v2/piston"

// Runtime describes a language runtime available on the runner.
type Runtime struct {
	Language string   `json:"language"`
	Version  string   `json:"version"`
	Aliases  []string `json:"aliases"`
}

// RunRequest is a single code execution request.
type RunRequest struct {
	Language string `json:"language" validate:"required"`
	Version  string `json:"version"`
	Code     string `json:"code" validate:"required"`
	Stdin    string `json:"stdin"`
}

// RunResult carries the runner's stdout/stderr and exit code.
type RunResult struct {
	Language string `json:"language"`
	Version  string `json:"version"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Output   string `json:"output"`
	ExitCode int    `json:"exit_code"`
}

type pistonFile struct {
	Content string `json:"content"`
}

type pistonExecuteRequest struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Files    []pistonFile `json:"files"`
	Stdin    string       `json:"stdin,omitempty"`
}

type pistonExecuteResponse struct {
	Language string `json:"language"`
	Version  string `json:"version"`
	Run      struct {
		Stdout string `json:"stdout"`
		Stderr string `json:"stderr"`
		Output string `json:"output"`
		Code   int    `json:"code"`
	} `json:"run"`
}

// Client is a rate-limited Piston API client. The mutex-guarded last-call
// timestamp serialises requests so at most one is issued per minInterval.
type Client struct {
	baseURL     string
	http        *http.Client
	logger      zerolog.Logger
	minInterval time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

// New builds a client. A non-positive minInterval defaults to 200ms, the
// public instance's documented request spacing.
func New(baseURL string, timeout, minInterval time.Duration, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if minInterval <= 0 {
		minInterval = 200 * time.Millisecond
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: timeout},
		logger:      logger.With().Str("component", "coderunner").Logger(),
		minInterval: minInterval,
	}
}

// waitTurn blocks until the rate limit window allows another request, or
// the context is cancelled.
func (c *Client) waitTurn(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	wait := c.minInterval - time.Since(c.lastCall)
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	c.lastCall = time.Now()
	return nil
}

// Runtimes lists the runner's available language runtimes.
func (c *Client) Runtimes(ctx context.Context) ([]Runtime, error) {
	if err := c.waitTurn(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/runtimes", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build runtimes request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("runtimes request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("runtimes request returned status %d", resp.StatusCode)
	}

	var runtimes []Runtime
	if err := json.NewDecoder(resp.Body).Decode(&runtimes); err != nil {
		return nil, fmt.Errorf("failed to decode runtimes: %w", err)
	}

	return runtimes, nil
}

// Run executes the submitted code on the external runner.
func (c *Client) Run(ctx context.Context, request RunRequest) (RunResult, error) {
	if err := c.waitTurn(ctx); err != nil {
		return RunResult{}, err
	}

	version := request.Version
	if version == "" {
		version = "*"
	}

	payload, err := json.Marshal(pistonExecuteRequest{
		Language: request.Language,
		Version:  version,
		Files:    []pistonFile{{Content: request.Code}},
		Stdin:    request.Stdin,
	})
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to encode execute request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(payload))
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to build execute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return RunResult{}, fmt.Errorf("execute request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return RunResult{}, fmt.Errorf("execute request returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded pistonExecuteResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return RunResult{}, fmt.Errorf("failed to decode execute response: %w", err)
	}

	c.logger.Debug().Str("language", decoded.Language).Int("exit_code", decoded.Run.Code).Msg("code executed on external runner")

	return RunResult{
		Language: decoded.Language,
		Version:  decoded.Version,
		Stdout:   decoded.Run.Stdout,
		Stderr:   decoded.Run.Stderr,
		Output:   decoded.Run.Output,
		ExitCode: decoded.Run.Code,
	}, nil
}
