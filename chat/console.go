package chat

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ConsoleClient writes messages to a terminal instead of a chat platform.
type ConsoleClient struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleClient creates a console client writing to w.
func NewConsoleClient(w io.Writer) *ConsoleClient {
	return &ConsoleClient{w: w}
}

// PostMessage prints the message text followed by any context blocks.
func (c *ConsoleClient) PostMessage(ctx context.Context, token string, msg Message) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", msg.Text)
	for _, block := range msg.Blocks {
		if block.Type != "context" {
			continue
		}
		for _, el := range block.Elements {
			fmt.Fprintf(&b, "  %s\n", el.Text)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.w, b.String()); err != nil {
		return Response{}, fmt.Errorf("failed to write message: %w", err)
	}
	return Response{OK: true}, nil
}

// UploadFile prints the file name, size and content.
func (c *ConsoleClient) UploadFile(ctx context.Context, token string, file File) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.w, "--- %s (%d bytes) ---\n%s\n---\n", file.Filename, len(file.Content), file.Content); err != nil {
		return Response{}, fmt.Errorf("failed to write file: %w", err)
	}
	return Response{OK: true}, nil
}

// Verify ConsoleClient implements Client
var _ Client = (*ConsoleClient)(nil)
