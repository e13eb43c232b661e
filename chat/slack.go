// Slack Web API client.
//
// Information Hiding:
// - Endpoint paths and payload encoding (JSON, form, multipart)
// - The three-step external file upload
// - Transient failure classification
// - Backoff algorithm hidden

package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the Slack Web API root.
const DefaultBaseURL = "https://slack.com/api"

// SlackClient implements Client against the Slack Web API.
type SlackClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries uint32
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     *zap.Logger
}

// SlackOption configures a SlackClient.
type SlackOption func(*SlackClient)

// WithBaseURL points the client at another API root (tests, proxies).
func WithBaseURL(url string) SlackOption {
	return func(c *SlackClient) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) SlackOption {
	return func(c *SlackClient) { c.httpClient = client }
}

// WithMaxRetries sets how many attempts a call gets in total.
func WithMaxRetries(n uint32) SlackOption {
	return func(c *SlackClient) { c.maxRetries = n }
}

// WithBackoff sets the base and maximum retry delay.
func WithBackoff(base, limit time.Duration) SlackOption {
	return func(c *SlackClient) {
		c.baseDelay = base
		c.maxDelay = limit
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(logger *zap.Logger) SlackOption {
	return func(c *SlackClient) { c.logger = logger }
}

// NewSlackClient creates a Slack client with sane defaults.
func NewSlackClient(opts ...SlackOption) *SlackClient {
	c := &SlackClient{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
		baseDelay:  100 * time.Millisecond,
		maxDelay:   5 * time.Second,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxRetries == 0 {
		c.maxRetries = 1
	}
	return c
}

// PostMessage calls chat.postMessage.
func (c *SlackClient) PostMessage(ctx context.Context, token string, msg Message) (Response, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return Response{}, fmt.Errorf("failed to encode message: %w", err)
	}
	return c.call(ctx, "chat.postMessage", token, "application/json; charset=utf-8", body, nil)
}

// uploadTicket is the files.getUploadURLExternal result.
type uploadTicket struct {
	Response
	UploadURL string `json:"upload_url"`
	FileID    string `json:"file_id"`
}

// completeUpload is the files.completeUploadExternal request body.
type completeUpload struct {
	Files     []uploadedFile `json:"files"`
	ChannelID string         `json:"channel_id,omitempty"`
	ThreadTS  string         `json:"thread_ts,omitempty"`
}

type uploadedFile struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// UploadFile shares a file in three steps: reserve an upload URL, send the
// content there, then complete the upload into the room.
func (c *SlackClient) UploadFile(ctx context.Context, token string, file File) (Response, error) {
	form := url.Values{}
	form.Set("filename", file.Filename)
	form.Set("length", strconv.Itoa(len(file.Content)))

	var ticket uploadTicket
	resp, err := c.call(ctx, "files.getUploadURLExternal", token,
		"application/x-www-form-urlencoded", []byte(form.Encode()), &ticket)
	if err != nil {
		return resp, err
	}
	if ticket.UploadURL == "" || ticket.FileID == "" {
		return resp, fmt.Errorf("files.getUploadURLExternal: response has no upload URL")
	}

	if err := c.sendContent(ctx, ticket.UploadURL, file); err != nil {
		return Response{}, err
	}

	body, err := json.Marshal(completeUpload{
		Files:     []uploadedFile{{ID: ticket.FileID, Title: file.Title}},
		ChannelID: file.Room,
		ThreadTS:  file.ThreadID,
	})
	if err != nil {
		return Response{}, fmt.Errorf("failed to encode upload: %w", err)
	}
	return c.call(ctx, "files.completeUploadExternal", token, "application/json; charset=utf-8", body, nil)
}

// sendContent posts the file bytes to a reserved upload URL.
func (c *SlackClient) sendContent(ctx context.Context, uploadURL string, file File) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", file.Filename)
	if err != nil {
		return fmt.Errorf("failed to encode upload: %w", err)
	}
	if _, err := part.Write(file.Content); err != nil {
		return fmt.Errorf("failed to encode upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to encode upload: %w", err)
	}

	_, err = c.retry(ctx, "file upload", func() (Response, error) {
		_, _, err := c.post(ctx, "file upload", uploadURL, "", w.FormDataContentType(), buf.Bytes())
		return Response{OK: true}, err
	})
	return err
}

// transientError marks a failure worth retrying.
type transientError struct {
	err        error
	retryAfter time.Duration
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// call runs one API method with retry on transient failures. When out is
// non-nil the response body is also decoded into it.
func (c *SlackClient) call(ctx context.Context, method, token, contentType string, body []byte, out any) (Response, error) {
	return c.retry(ctx, method, func() (Response, error) {
		return c.do(ctx, method, token, contentType, body, out)
	})
}

// retry runs fn until it succeeds, fails permanently, or attempts run out.
func (c *SlackClient) retry(ctx context.Context, name string, fn func() (Response, error)) (Response, error) {
	var lastErr error
	var wait time.Duration

	for attempt := uint32(0); attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.calculateBackoff(attempt)
			if wait > delay {
				delay = min(wait, c.maxDelay)
			}
			c.logger.Debug("retrying chat api call",
				zap.String("method", name),
				zap.Uint32("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := fn()
		if err == nil {
			return resp, nil
		}

		var transient *transientError
		if !errors.As(err, &transient) {
			return resp, err
		}
		lastErr = transient.err
		wait = transient.retryAfter
	}

	return Response{}, fmt.Errorf("%s failed after %d attempts: %w", name, c.maxRetries, lastErr)
}

// post sends one request and classifies HTTP-level failures.
func (c *SlackClient) post(ctx context.Context, name, target, token, contentType string, body []byte) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, &transientError{err: fmt.Errorf("request failed: %w", err)}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, nil, &transientError{err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500 {
		return nil, nil, &transientError{
			err:        fmt.Errorf("%s: HTTP %s", name, httpResp.Status),
			retryAfter: retryAfter(httpResp.Header),
		}
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, nil, fmt.Errorf("%s: HTTP %s", name, httpResp.Status)
	}
	return raw, httpResp.Header, nil
}

func (c *SlackClient) do(ctx context.Context, method, token, contentType string, body []byte, out any) (Response, error) {
	raw, header, err := c.post(ctx, method, c.baseURL+"/"+method, token, contentType, body)
	if err != nil {
		return Response{}, err
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, fmt.Errorf("%s: failed to decode response: %w", method, err)
	}
	if !resp.OK {
		err := fmt.Errorf("%s: %s: %w", method, resp.Error, ErrNotOK)
		if resp.Error == "ratelimited" {
			return resp, &transientError{err: err, retryAfter: retryAfter(header)}
		}
		return resp, err
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp, fmt.Errorf("%s: failed to decode response: %w", method, err)
		}
	}
	return resp, nil
}

// calculateBackoff returns the backoff duration for the given attempt.
func (c *SlackClient) calculateBackoff(attempt uint32) time.Duration {
	delay := c.baseDelay * time.Duration(1<<attempt)
	if delay > c.maxDelay {
		delay = c.maxDelay
	}
	return delay
}

func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// Verify SlackClient implements Client
var _ Client = (*SlackClient)(nil)
