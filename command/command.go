// Package command provides the vocabulary of actions a model can request.
//
// Information Hiding:
// - Concrete command shapes hidden behind the sealed Command interface
// - Discriminator resolution and field population hidden in the parser
// - Exemplar construction hidden in the registry
package command

import (
	"encoding/json"
	"fmt"
)

// Command is an action the model asked the system to perform.
// Commands are plain values; executing them is the responder's job.
type Command interface {
	// CommandName returns the symbolic name used as the JSON discriminator.
	CommandName() string
}

// Metadata describes a command type for the registry.
type Metadata struct {
	// Name is the discriminator value, e.g. "chat.post".
	Name string
	// Description tells the model what the command does.
	Description string
	// Example is an optional JSON object showing the command's shape.
	// The "command" field is injected when absent.
	Example string
}

// Described is implemented by every command type that can be registered.
type Described interface {
	Metadata() Metadata
}

// Reasoned pairs a value with the model's explanation for producing it.
type Reasoned[T any] struct {
	Thought string
	Action  T
}

// ChatPost posts a message back to the user and ends the turn.
type ChatPost struct {
	Body        string `json:"body" command:"required"`
	Synthesized bool   `json:"synthesized"`
}

func (ChatPost) CommandName() string { return "chat.post" }

func (ChatPost) Metadata() Metadata {
	return Metadata{
		Name:        "chat.post",
		Description: "Posts a message to the user and ends your turn. Set synthesized to true when you composed the answer yourself rather than quoting a memory.",
		Example:     `{"body": "The message to post", "synthesized": true}`,
	}
}

// NoOp ends the turn without replying.
type NoOp struct{}

func (NoOp) CommandName() string { return "noop" }

func (NoOp) Metadata() Metadata {
	return Metadata{
		Name:        "noop",
		Description: "Does nothing and ends your turn. Use it when no reply is needed.",
	}
}

// RememberSearch finds memories matching any of the given terms.
type RememberSearch struct {
	Terms []string `json:"terms" command:"required"`
}

func (RememberSearch) CommandName() string { return "rem.search" }

func (RememberSearch) Metadata() Metadata {
	return Metadata{
		Name:        "rem.search",
		Description: "Searches your memories for entries matching ANY of the provided terms. The results are sent back to you.",
		Example:     `{"terms": ["term1", "term2"]}`,
	}
}

// RememberGet looks up a single memory by exact key.
type RememberGet struct {
	Key string `json:"key" command:"required"`
}

func (RememberGet) CommandName() string { return "rem.get" }

func (RememberGet) Metadata() Metadata {
	return Metadata{
		Name:        "rem.get",
		Description: "Retrieves the memory stored under an exact key. The result is sent back to you.",
		Example:     `{"key": "the key"}`,
	}
}

// RememberSet stores a memory.
type RememberSet struct {
	Key   string `json:"key" command:"required"`
	Value string `json:"value" command:"required"`
}

func (RememberSet) CommandName() string { return "rem.set" }

func (RememberSet) Metadata() Metadata {
	return Metadata{
		Name:        "rem.set",
		Description: "Stores a memory under the given key, replacing any existing value.",
		Example:     `{"key": "the key", "value": "the value"}`,
	}
}

// RememberDelete removes a memory.
type RememberDelete struct {
	Key string `json:"key" command:"required"`
}

func (RememberDelete) CommandName() string { return "rem.delete" }

func (RememberDelete) Metadata() Metadata {
	return Metadata{
		Name:        "rem.delete",
		Description: "Deletes the memory stored under the given key.",
		Example:     `{"key": "the key"}`,
	}
}

// Unknown captures a command whose name is not registered.
// Properties holds every non-discriminator field as compact raw JSON.
type Unknown struct {
	Name       string
	Properties map[string]json.RawMessage
}

func (u Unknown) CommandName() string { return u.Name }

// Property decodes a captured property into a generic Go value.
func (u Unknown) Property(key string) (any, bool) {
	raw, ok := u.Properties[key]
	if !ok {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return v, true
}

// String returns a readable form for logs and debug output.
func (u Unknown) String() string {
	return fmt.Sprintf("unknown command %q (%d properties)", u.Name, len(u.Properties))
}

// Vocabulary returns the prototypes of every built-in command, with the
// default values optional fields take when the model omits them.
func Vocabulary() []Command {
	return []Command{
		ChatPost{Synthesized: false},
		NoOp{},
		RememberSearch{},
		RememberGet{},
		RememberSet{},
		RememberDelete{},
	}
}
