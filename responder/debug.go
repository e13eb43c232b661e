package responder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/richinex/abbot/chat"
	"github.com/richinex/abbot/command"
	"github.com/richinex/abbot/llm"
	"github.com/richinex/abbot/model"
)

// debugChannel posts observational messages to a session's room when the
// session has debug mode on. Send failures are logged and never change
// the outcome of a turn.
type debugChannel struct {
	chat   chat.Client
	token  string
	logger *zap.Logger
}

func (d *debugChannel) post(ctx context.Context, s *model.Session, text string) {
	if !s.DebugMode {
		return
	}
	resp, err := d.chat.PostMessage(ctx, d.token, chat.Message{Room: s.Room, ThreadID: s.ThreadID, Text: text})
	if err != nil {
		d.logger.Warn("debug post failed", zap.String("session_id", s.ID), zap.Error(err))
		return
	}
	if !resp.OK {
		d.logger.Warn("debug post rejected", zap.String("session_id", s.ID), zap.String("error", resp.Error))
	}
}

func (d *debugChannel) turnStarted(ctx context.Context, s *model.Session, number int) {
	if !s.DebugMode {
		return
	}
	d.post(ctx, s, fmt.Sprintf(":robot_face: Turn %d started (model `%s`, temperature %.2f).",
		number, s.ModelSettings.Model, s.ModelSettings.Temperature))

	resp, err := d.chat.UploadFile(ctx, d.token, chat.File{
		Content:  []byte(s.SystemPrompt),
		Filename: "system-prompt.md",
		Title:    "System prompt",
		Room:     s.Room,
		ThreadID: s.ThreadID,
	})
	if err != nil {
		d.logger.Warn("debug upload failed", zap.String("session_id", s.ID), zap.Error(err))
	} else if !resp.OK {
		d.logger.Warn("debug upload rejected", zap.String("session_id", s.ID), zap.String("error", resp.Error))
	}
}

func (d *debugChannel) iterationStarted(ctx context.Context, s *model.Session, number int) {
	d.post(ctx, s, fmt.Sprintf("Iteration %d started.", number))
}

func (d *debugChannel) request(ctx context.Context, s *model.Session, msg llm.ChatMessage) {
	d.post(ctx, s, "Request:\n"+fence(msg.Content))
}

func (d *debugChannel) response(ctx context.Context, s *model.Session, msg llm.ChatMessage) {
	d.post(ctx, s, "Response:\n"+fence(msg.Content))
}

func (d *debugChannel) parsed(ctx context.Context, s *model.Session, parsed command.Reasoned[[]command.Command]) {
	if !s.DebugMode {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Thought: %s\n", parsed.Thought)
	for _, cmd := range parsed.Action {
		fmt.Fprintf(&b, "Command `%s`: %s\n", cmd.CommandName(), describeCommand(cmd))
	}
	d.post(ctx, s, strings.TrimRight(b.String(), "\n"))
}

func (d *debugChannel) result(ctx context.Context, s *model.Session, result model.IterationResult) {
	switch r := result.(type) {
	case model.ContinueTurn:
		d.post(ctx, s, "Continue with:\n"+fence(r.NextRequest))
	case model.EndTurn:
		if r.ResponseMessage == nil {
			d.post(ctx, s, "End turn without a reply.")
			return
		}
		d.post(ctx, s, fmt.Sprintf("End turn (synthesized: %t).", r.Synthesized))
	}
}

func (d *debugChannel) turnEnded(ctx context.Context, s *model.Session, turn *model.Turn, err error) {
	if err != nil {
		d.post(ctx, s, fmt.Sprintf("Turn failed after %d iteration(s): %v", len(turn.Iterations), err))
		return
	}
	d.post(ctx, s, fmt.Sprintf("Turn completed in %d iteration(s).", len(turn.Iterations)))
}

func describeCommand(cmd command.Command) string {
	if u, ok := cmd.(command.Unknown); ok {
		return u.String()
	}
	b, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Sprintf("%+v", cmd)
	}
	return string(b)
}

func fence(s string) string {
	return "```\n" + s + "\n```"
}
