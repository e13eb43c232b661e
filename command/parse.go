// Command parsing.
//
// The model answers with {"thought": "...", "action": [{"command": "...", ...}]},
// optionally inside a fenced code block. Parsing happens in two stages that
// never call each other recursively: decideCommand reads the discriminator
// and picks a shape, populate fills the fields of an already-chosen type.

package command

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonutil "github.com/richinex/abbot/internal/json"
)

// discriminator is the JSON property naming a command.
const discriminator = "command"

type envelope struct {
	Thought string            `json:"thought"`
	Action  []json.RawMessage `json:"action"`
}

// Parse converts raw model output into a thought and its commands.
// Any error aborts the whole parse; no partial result is returned.
func (r *Registry) Parse(raw string) (Reasoned[[]Command], error) {
	payload := []byte(jsonutil.Payload(raw))
	if len(payload) == 0 || payload[0] != '{' {
		return Reasoned[[]Command]{}, fmt.Errorf("%w: response is not a JSON object", ErrParse)
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Reasoned[[]Command]{}, fmt.Errorf("%w: malformed response: %v", ErrParse, err)
	}
	if env.Action == nil {
		return Reasoned[[]Command]{}, fmt.Errorf("%w: response has no action array", ErrParse)
	}

	commands := make([]Command, 0, len(env.Action))
	for i, element := range env.Action {
		cmd, err := r.decideCommand(element)
		if err != nil {
			return Reasoned[[]Command]{}, fmt.Errorf("action[%d]: %w", i, err)
		}
		if cmd != nil {
			commands = append(commands, cmd)
		}
	}

	return Reasoned[[]Command]{Thought: env.Thought, Action: commands}, nil
}

// decideCommand resolves one action element. It returns nil, nil for
// elements without a command name.
func (r *Registry) decideCommand(element json.RawMessage) (Command, error) {
	trimmed := bytes.TrimSpace(element)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: action element is not a JSON object: %s", ErrParse, trimmed)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	name, err := commandName(fields)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, nil
	}
	delete(fields, discriminator)

	if d, ok := r.TryResolve(name); ok {
		return populate(d, fields)
	}
	return unknown(name, fields)
}

func commandName(fields map[string]json.RawMessage) (string, error) {
	raw, ok := fields[discriminator]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		return "", nil
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return "", fmt.Errorf("%w: %q must be a string, got %s", ErrParse, discriminator, raw)
	}
	return name, nil
}

// populate fills a copy of the descriptor's prototype field by field.
// Each field is decoded against its own Go type, so nested objects that
// happen to carry a "command" key are never re-dispatched.
func populate(d Descriptor, fields map[string]json.RawMessage) (Command, error) {
	v := reflectNew(d)
	for _, spec := range d.fields {
		raw, ok := fields[spec.name]
		if !ok || string(bytes.TrimSpace(raw)) == "null" {
			if spec.required {
				return nil, &MissingFieldError{Command: d.Name, Field: spec.name}
			}
			continue
		}
		target := v.Field(spec.index).Addr().Interface()
		if err := json.Unmarshal(raw, target); err != nil {
			return nil, fmt.Errorf("%w: command %q field %q: %v", ErrParse, d.Name, spec.name, err)
		}
	}
	return v.Interface().(Command), nil
}

func unknown(name string, fields map[string]json.RawMessage) (Command, error) {
	props := make(map[string]json.RawMessage, len(fields))
	for k, raw := range fields {
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return nil, fmt.Errorf("%w: property %q: %v", ErrParse, k, err)
		}
		props[k] = json.RawMessage(compact.Bytes())
	}
	return Unknown{Name: name, Properties: props}, nil
}
