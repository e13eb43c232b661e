package chat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *SlackClient {
	t.Helper()
	server := httptest.NewServer(handler)
	transport := &http.Transport{}
	t.Cleanup(func() {
		transport.CloseIdleConnections()
		server.Close()
	})
	return NewSlackClient(
		WithBaseURL(server.URL+"/"),
		WithHTTPClient(&http.Client{Transport: transport}),
		WithBackoff(time.Millisecond, 5*time.Millisecond),
	)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestPostMessage(t *testing.T) {
	var got Message
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		assert.Equal(t, "Bearer xoxb-1", r.Header.Get("Authorization"))
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, Response{OK: true})
	})

	resp, err := client.PostMessage(context.Background(), "xoxb-1", Message{
		Room:     "C1",
		ThreadID: "123.456",
		Text:     "hello",
		Blocks:   []Block{SectionBlock("hello"), ContextBlock("_synthesized by AI_")},
	})
	require.NoError(t, err)
	assert.True(t, resp.OK)

	assert.Equal(t, "C1", got.Room)
	assert.Equal(t, "123.456", got.ThreadID)
	require.Len(t, got.Blocks, 2)
	assert.Equal(t, "context", got.Blocks[1].Type)
	assert.Equal(t, "_synthesized by AI_", got.Blocks[1].Elements[0].Text)
}

func TestPostMessageNotOK(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, Response{OK: false, Error: "channel_not_found"})
	})

	resp, err := client.PostMessage(context.Background(), "t", Message{Room: "C1", Text: "x"})
	require.ErrorIs(t, err, ErrNotOK)
	assert.Contains(t, err.Error(), "channel_not_found")
	assert.Equal(t, "channel_not_found", resp.Error)
	assert.Equal(t, int32(1), calls.Load(), "permanent failures are not retried")
}

func TestPostMessageRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			writeJSON(w, Response{OK: false, Error: "ratelimited"})
		default:
			writeJSON(w, Response{OK: true})
		}
	})

	resp, err := client.PostMessage(context.Background(), "t", Message{Room: "C1", Text: "x"})
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPostMessageGivesUp(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.PostMessage(context.Background(), "t", Message{Room: "C1", Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), calls.Load())
}

func TestPostMessageClientError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.PostMessage(context.Background(), "t", Message{Room: "C1", Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestPostMessageHonorsCancellation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.PostMessage(ctx, "t", Message{Room: "C1", Text: "x"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestUploadFile(t *testing.T) {
	var mu sync.Mutex
	var steps []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		steps = append(steps, r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/files.getUploadURLExternal":
			assert.Equal(t, "Bearer t", r.Header.Get("Authorization"))
			if !assert.NoError(t, r.ParseForm()) {
				return
			}
			assert.Equal(t, "system-prompt.md", r.PostFormValue("filename"))
			assert.Equal(t, "8", r.PostFormValue("length"))
			writeJSON(w, map[string]any{"ok": true, "upload_url": "http://" + r.Host + "/upload/F1", "file_id": "F1"})

		case "/upload/F1":
			f, header, err := r.FormFile("file")
			if !assert.NoError(t, err) {
				return
			}
			defer f.Close()
			body, err := io.ReadAll(f)
			assert.NoError(t, err)
			assert.Equal(t, "system-prompt.md", header.Filename)
			assert.Equal(t, "# prompt", string(body))
			_, _ = io.WriteString(w, "OK - 8")

		case "/files.completeUploadExternal":
			var req completeUpload
			if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
				return
			}
			assert.Equal(t, completeUpload{
				Files:     []uploadedFile{{ID: "F1", Title: "System prompt"}},
				ChannelID: "C1",
				ThreadTS:  "123.456",
			}, req)
			writeJSON(w, Response{OK: true})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	resp, err := client.UploadFile(context.Background(), "t", File{
		Content:  []byte("# prompt"),
		Filename: "system-prompt.md",
		Title:    "System prompt",
		Room:     "C1",
		ThreadID: "123.456",
	})
	require.NoError(t, err)
	assert.True(t, resp.OK)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/files.getUploadURLExternal", "/upload/F1", "/files.completeUploadExternal"}, steps)
}

func TestUploadFileStopsOnFailedStep(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"reserve not ok": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, Response{OK: false, Error: "invalid_auth"})
		},
		"no upload url": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, Response{OK: true})
		},
		"content rejected": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/files.getUploadURLExternal" {
				writeJSON(w, map[string]any{"ok": true, "upload_url": "http://" + r.Host + "/upload/F1", "file_id": "F1"})
				return
			}
			assert.NotEqual(t, "/files.completeUploadExternal", r.URL.Path)
			w.WriteHeader(http.StatusForbidden)
		},
	}
	for name, handler := range tests {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, handler)
			_, err := client.UploadFile(context.Background(), "t", File{Content: []byte("x"), Filename: "a.md"})
			assert.Error(t, err)
		})
	}
}

func TestRetryAfter(t *testing.T) {
	h := http.Header{}
	assert.Zero(t, retryAfter(h))
	h.Set("Retry-After", "2")
	assert.Equal(t, 2*time.Second, retryAfter(h))
	h.Set("Retry-After", "soon")
	assert.Zero(t, retryAfter(h))
}

func TestCalculateBackoffCapped(t *testing.T) {
	c := NewSlackClient(WithBackoff(100*time.Millisecond, time.Second))
	assert.Equal(t, 200*time.Millisecond, c.calculateBackoff(1))
	assert.Equal(t, 400*time.Millisecond, c.calculateBackoff(2))
	assert.Equal(t, time.Second, c.calculateBackoff(10))
}
