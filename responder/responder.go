// Package responder drives a conversation turn between a user, the model,
// and the command vocabulary.
//
// Information Hiding:
// - Turn/iteration state machine and its termination rules
// - Transcript construction for the model
// - Failure notification at the turn boundary
// - Debug side channel
package responder

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/richinex/abbot/chat"
	"github.com/richinex/abbot/command"
	"github.com/richinex/abbot/llm"
	"github.com/richinex/abbot/memory"
	"github.com/richinex/abbot/model"
)

// DefaultMaxIterations caps the iterations spent on one turn.
const DefaultMaxIterations = 3

// User-facing failure messages.
const (
	ExhaustedMessage = "Sorry, I couldn't determine an answer to that."
	FailureMessage   = "Sorry, I wasn't able to answer that. Something went wrong on my end."
)

// Completer is the slice of the LLM client the responder needs.
// A completion without choices fails the turn with llm.ErrNoChoices.
type Completer interface {
	GetChatCompletion(ctx context.Context, history []llm.ChatMessage, model string, temperature float32, actor string) (llm.Completion, error)
}

// Responder answers chat messages by running the command loop.
// A Responder is safe for concurrent use across sessions; turns within
// one session are serialized.
type Responder struct {
	registry      *command.Registry
	client        Completer
	chat          chat.Client
	executor      *Executor
	chatToken     string
	maxIterations int
	logger        *zap.Logger
	debug         *debugChannel
}

// Option configures a Responder.
type Option func(*Responder)

// WithMaxIterations sets the per-turn iteration cap. Values below 1 are ignored.
func WithMaxIterations(n int) Option {
	return func(r *Responder) {
		if n > 0 {
			r.maxIterations = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Responder) { r.logger = logger }
}

// WithChatToken sets the API token used for every chat call.
func WithChatToken(token string) Option {
	return func(r *Responder) { r.chatToken = token }
}

// New creates a responder.
func New(registry *command.Registry, client Completer, chatClient chat.Client, store memory.Store, opts ...Option) *Responder {
	r := &Responder{
		registry:      registry,
		client:        client,
		chat:          chatClient,
		executor:      NewExecutor(store),
		maxIterations: DefaultMaxIterations,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.debug = &debugChannel{chat: chatClient, token: r.chatToken, logger: r.logger}
	return r
}

// Respond runs one turn for message and appends it to session.
//
// On success the returned turn is complete. On failure the user has been
// told (unless ctx was cancelled), the turn is appended incomplete so the
// exchange already sent to the model stays in the transcript, and the
// error is a *TurnError.
func (r *Responder) Respond(ctx context.Context, session *model.Session, message model.ChatMessage) (*model.Turn, error) {
	if session.Initiator.ID != "" && message.From.ID != session.Initiator.ID {
		return nil, fmt.Errorf("%w: %s", ErrNotInitiator, message.From)
	}
	if err := session.Acquire(ctx); err != nil {
		return nil, err
	}
	defer session.Release()

	number := len(session.Turns()) + 1
	log := r.logger.With(zap.String("session_id", session.ID), zap.Int("turn", number))
	turn := &model.Turn{Message: message}

	r.debug.turnStarted(ctx, session, number)
	log.Info("turn started", zap.String("from", message.From.ID))

	result, err := r.runTurn(ctx, session, turn, log)
	if err != nil {
		session.AppendTurn(turn)
		r.debug.turnEnded(ctx, session, turn, err)
		r.notifyFailure(ctx, session, err, log)
		return turn, err
	}

	turn.MarkComplete()
	session.AppendTurn(turn)
	r.debug.turnEnded(ctx, session, turn, nil)
	log.Info("turn completed", zap.Int("iterations", len(turn.Iterations)))

	if result.ResponseMessage == nil {
		return turn, nil
	}
	if err := r.postAnswer(ctx, session, *result.ResponseMessage, result.Synthesized); err != nil {
		log.Error("failed to post answer", zap.Error(err))
		return turn, &TurnError{
			Turn:      turn,
			Iteration: len(turn.Iterations),
			Err:       fmt.Errorf("%w: %w", ErrPostFailed, err),
		}
	}
	return turn, nil
}

// runTurn executes iterations until one ends the turn or the cap is hit.
func (r *Responder) runTurn(ctx context.Context, session *model.Session, turn *model.Turn, log *zap.Logger) (model.EndTurn, error) {
	history := session.History()
	request := llm.UserMessage(FormatFirstRequest(turn.Message))

	for n := 1; n <= r.maxIterations; n++ {
		if err := ctx.Err(); err != nil {
			return model.EndTurn{}, &TurnError{Turn: turn, Iteration: n, Err: err}
		}

		it := &model.Iteration{Number: n, Request: request}
		turn.Append(it)
		ilog := log.With(zap.Int("iteration", n))
		r.debug.iterationStarted(ctx, session, n)
		r.debug.request(ctx, session, request)

		history = append(history, request)
		completion, err := r.client.GetChatCompletion(ctx, history,
			session.ModelSettings.Model, session.ModelSettings.Temperature, session.Initiator.ID)
		if err != nil {
			return model.EndTurn{}, &TurnError{Turn: turn, Iteration: n, Err: err}
		}

		if len(completion.Choices) == 0 {
			return model.EndTurn{}, &TurnError{Turn: turn, Iteration: n, Err: llm.ErrNoChoices}
		}
		response := completion.Choices[0].Message
		if response.Role != llm.RoleAssistant {
			return model.EndTurn{}, &TurnError{Turn: turn, Iteration: n,
				Err: fmt.Errorf("%w: %q", ErrUnexpectedRole, response.Role)}
		}
		it.Response = &response
		history = append(history, response)
		r.debug.response(ctx, session, response)

		parsed, err := r.registry.Parse(response.Content)
		if err != nil {
			return model.EndTurn{}, &TurnError{Turn: turn, Iteration: n, Err: err}
		}
		it.Parsed = parsed
		r.debug.parsed(ctx, session, parsed)

		switch len(parsed.Action) {
		case 0:
			return model.EndTurn{}, &TurnError{Turn: turn, Iteration: n, Err: ErrNoCommand}
		case 1:
		default:
			return model.EndTurn{}, &TurnError{Turn: turn, Iteration: n,
				Err: fmt.Errorf("%w: got %d", ErrMultipleCommands, len(parsed.Action))}
		}

		cmd := parsed.Action[0]
		ilog.Debug("executing command", zap.String("command", cmd.CommandName()))
		result, err := r.executor.Execute(ctx, session, cmd)
		if err != nil {
			return model.EndTurn{}, &TurnError{Turn: turn, Iteration: n, Command: cmd.CommandName(), Err: err}
		}
		it.Result = result
		r.debug.result(ctx, session, result)

		switch res := result.(type) {
		case model.EndTurn:
			return res, nil
		case model.ContinueTurn:
			request = llm.UserMessage(res.NextRequest)
		}
	}

	log.Warn("iteration limit reached", zap.Int("max_iterations", r.maxIterations))
	return model.EndTurn{}, &TurnError{Turn: turn, Iteration: r.maxIterations, Err: ErrIterationsExhausted}
}

// notifyFailure tells the user the turn failed. The detailed error is logged.
func (r *Responder) notifyFailure(ctx context.Context, session *model.Session, err error, log *zap.Logger) {
	if ctx.Err() != nil {
		log.Info("turn cancelled", zap.Error(err))
		return
	}

	text := FailureMessage
	if errors.Is(err, ErrIterationsExhausted) {
		text = ExhaustedMessage
	}

	fields := []zap.Field{zap.Error(err)}
	var te *TurnError
	if errors.As(err, &te) {
		fields = append(fields, zap.Int("iteration", te.Iteration), zap.String("command", te.Command))
	}
	log.Error("turn failed", fields...)

	resp, postErr := r.chat.PostMessage(ctx, r.chatToken, chat.Message{
		Room:     session.Room,
		ThreadID: session.ThreadID,
		Text:     text,
	})
	if postErr != nil {
		log.Error("failed to notify user", zap.Error(postErr))
	} else if !resp.OK {
		log.Error("failure notice rejected", zap.String("error", resp.Error))
	}
}

// postAnswer sends the final answer with a note on where it came from.
func (r *Responder) postAnswer(ctx context.Context, session *model.Session, body string, synthesized bool) error {
	source := "This answer was retrieved from memory."
	if synthesized {
		source = "This answer was synthesized by AI."
	}

	resp, err := r.chat.PostMessage(ctx, r.chatToken, chat.Message{
		Room:     session.Room,
		ThreadID: session.ThreadID,
		Text:     body,
		Blocks:   []chat.Block{chat.SectionBlock(body), chat.ContextBlock(source)},
	})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("%s: %w", resp.Error, chat.ErrNotOK)
	}
	return nil
}
