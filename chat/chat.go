// Package chat provides the chat platform messaging API: posting messages
// and uploading files into a room or thread.
//
// Information Hiding:
// - Wire format of the platform's Web API
// - Retry and backoff on transient failures
// - Token handling (passed per call, never stored by callers' sessions)
package chat

import (
	"context"
	"errors"
)

// ErrNotOK is returned when the platform answers a call with ok=false.
var ErrNotOK = errors.New("chat api call not ok")

// TextObject is a block text element.
type TextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Block is a layout block attached to a message.
type Block struct {
	Type     string       `json:"type"`
	Text     *TextObject  `json:"text,omitempty"`
	Elements []TextObject `json:"elements,omitempty"`
}

// SectionBlock renders markdown as the main body of a message.
func SectionBlock(markdown string) Block {
	return Block{Type: "section", Text: &TextObject{Type: "mrkdwn", Text: markdown}}
}

// ContextBlock renders small secondary markdown under a message.
func ContextBlock(markdown string) Block {
	return Block{Type: "context", Elements: []TextObject{{Type: "mrkdwn", Text: markdown}}}
}

// Message is an outbound chat message. Text is the notification fallback
// when Blocks are present.
type Message struct {
	Room     string  `json:"channel"`
	ThreadID string  `json:"thread_ts,omitempty"`
	Text     string  `json:"text"`
	Blocks   []Block `json:"blocks,omitempty"`
}

// File is an outbound file upload.
type File struct {
	Content  []byte
	Filename string
	Title    string
	Room     string
	ThreadID string
}

// Response is the platform's acknowledgement of a call.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Client posts messages and files on behalf of an API token.
type Client interface {
	PostMessage(ctx context.Context, token string, msg Message) (Response, error)
	UploadFile(ctx context.Context, token string, file File) (Response, error)
}
