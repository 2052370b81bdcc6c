package agentproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/jobchat-cli/internal/domain"
	"github.com/bnema/jobchat-cli/internal/ports"
	"github.com/rs/zerolog"
)

const maxErrorBodyBytes = 4 << 10

var ErrMissingURL = errors.New("agent proxy url is required")

type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "http error"
	}
	if e.Body != "" {
		return fmt.Sprintf("agent proxy returned %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("agent proxy returned %s", e.Status)
}

// Client posts a turn to the agent proxy and streams the response body back.
// It never retries: a new request is a new turn.
type Client struct {
	URL        string
	HTTPClient *http.Client
	// Timeout caps a whole turn, body included. Zero leaves streaming unbounded.
	Timeout   time.Duration
	UserAgent string
	Logger    zerolog.Logger
}

var _ ports.Transport = Client{}

func (c Client) Open(ctx context.Context, turn domain.TurnRequest) (io.ReadCloser, error) {
	endpoint, err := endpointURL(c.URL)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(turn)
	if err != nil {
		return nil, fmt.Errorf("encode turn request: %w", err)
	}

	requestCtx, cancel := c.requestContext(ctx)
	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create turn request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	c.Logger.Debug().Str("url", endpoint).Int("bytes", len(body)).Msg("posting turn")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("post turn: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer cancel()
		defer func() { _ = resp.Body.Close() }()

		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	return &streamBody{ReadCloser: resp.Body, cancel: cancel}, nil
}

func (c Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}

// streamBody releases the request context once the caller is done reading.
type streamBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *streamBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func endpointURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrMissingURL
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse agent proxy url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("agent proxy url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("agent proxy url host is required")
	}

	return parsed.String(), nil
}
