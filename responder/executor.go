package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/richinex/abbot/command"
	"github.com/richinex/abbot/memory"
	"github.com/richinex/abbot/model"
)

// NoMemoriesMessage is the request sent back when a search finds nothing.
const NoMemoriesMessage = "There are NO memories matching ANY of the provided terms."

// Executor turns one resolved command into an iteration result.
// It only reads from the memory store.
type Executor struct {
	store memory.Store
}

// NewExecutor creates an executor backed by store.
func NewExecutor(store memory.Store) *Executor {
	return &Executor{store: store}
}

// Execute runs cmd on behalf of session.
func (e *Executor) Execute(ctx context.Context, session *model.Session, cmd command.Command) (model.IterationResult, error) {
	switch c := cmd.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil command", ErrUnsupportedCommand)

	case command.ChatPost:
		body := c.Body
		return model.EndTurn{ResponseMessage: &body, Synthesized: c.Synthesized}, nil

	case command.NoOp:
		return model.EndTurn{}, nil

	case command.RememberSearch:
		entries, err := e.store.Search(ctx, c.Terms, session.Organization)
		if err != nil {
			return nil, fmt.Errorf("memory search: %w", err)
		}
		if len(entries) == 0 {
			return model.ContinueTurn{NextRequest: NoMemoriesMessage}, nil
		}
		lines := make([]string, 0, len(entries))
		for _, entry := range entries {
			lines = append(lines, fmt.Sprintf("%s = %s", entry.Name, entry.Content))
		}
		return model.ContinueTurn{NextRequest: strings.Join(lines, "\n")}, nil

	case command.RememberGet:
		entry, err := e.store.Get(ctx, c.Key, session.Organization)
		if errors.Is(err, memory.ErrNotFound) {
			return model.ContinueTurn{NextRequest: fmt.Sprintf("I don't know what `%s` is.", c.Key)}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("memory get: %w", err)
		}
		return model.ContinueTurn{NextRequest: fmt.Sprintf("`%s` is `%s`.", c.Key, entry.Content)}, nil

	default:
		// rem.set and rem.delete are registered but not yet executable.
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCommand, cmd.CommandName())
	}
}
