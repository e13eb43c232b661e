package responder

import (
	"errors"
	"fmt"

	"github.com/richinex/abbot/model"
)

var (
	// ErrIterationsExhausted means the model never ended the turn within the cap.
	ErrIterationsExhausted = errors.New("iteration limit reached without an answer")

	// ErrMultipleCommands means the model asked for more than one command in an iteration.
	ErrMultipleCommands = errors.New("more than one command in a single iteration")

	// ErrNoCommand means the model's action list resolved to nothing.
	ErrNoCommand = errors.New("no command in response")

	// ErrUnexpectedRole means the completion did not come from the assistant.
	ErrUnexpectedRole = errors.New("unexpected completion role")

	// ErrUnsupportedCommand means the executor has no handler for a command.
	ErrUnsupportedCommand = errors.New("unsupported command")

	// ErrPostFailed means the final answer could not be delivered.
	ErrPostFailed = errors.New("failed to post answer")

	// ErrNotInitiator means someone other than the session's initiator sent the message.
	ErrNotInitiator = errors.New("message is not from the session initiator")
)

// TurnError is the detailed, developer-facing record of a failed turn.
type TurnError struct {
	// Turn is the turn as it stood when it failed.
	Turn *model.Turn
	// Iteration is the 1-based iteration that failed, or 0 outside the loop.
	Iteration int
	// Command is the offending command name, when one was resolved.
	Command string
	Err     error
}

func (e *TurnError) Error() string {
	switch {
	case e.Command != "":
		return fmt.Sprintf("turn failed at iteration %d (command %q): %v", e.Iteration, e.Command, e.Err)
	case e.Iteration > 0:
		return fmt.Sprintf("turn failed at iteration %d: %v", e.Iteration, e.Err)
	default:
		return fmt.Sprintf("turn failed: %v", e.Err)
	}
}

func (e *TurnError) Unwrap() error { return e.Err }
