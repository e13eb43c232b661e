// Command registry.
//
// Information Hiding:
// - Descriptor storage and lookup hidden
// - Field plans for population computed once at registration
// - Exemplar normalisation hidden

package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Descriptor is the registry entry for one command type.
type Descriptor struct {
	Name        string
	Description string
	// Exemplar is a compact JSON object whose "command" field equals Name.
	Exemplar json.RawMessage
	// Type is the concrete struct type of the command.
	Type reflect.Type

	prototype reflect.Value
	fields    []fieldSpec
}

type fieldSpec struct {
	index    int
	name     string
	required bool
}

// New returns a copy of the registered prototype.
func (d Descriptor) New() Command {
	return reflectNew(d).Interface().(Command)
}

// reflectNew returns an addressable copy of the prototype.
func reflectNew(d Descriptor) reflect.Value {
	v := reflect.New(d.Type).Elem()
	v.Set(d.prototype)
	return v
}

// Required lists the JSON names of required fields.
func (d Descriptor) Required() []string {
	var names []string
	for _, f := range d.fields {
		if f.required {
			names = append(names, f.name)
		}
	}
	return names
}

// Registry maps command names to descriptors.
// It is immutable once built, so lookups need no locking.
type Registry struct {
	byName map[string]Descriptor
}

// RegisterCommands builds a registry from command prototypes.
//
// Every prototype must be a struct value implementing Described, with a
// unique non-empty name. Field values of the prototype become the defaults
// for optional fields the model omits.
func RegisterCommands(prototypes ...Command) (*Registry, error) {
	r := &Registry{byName: make(map[string]Descriptor, len(prototypes))}
	for _, p := range prototypes {
		d, err := describe(p)
		if err != nil {
			return nil, err
		}
		if existing, ok := r.byName[d.Name]; ok {
			return nil, &RegistrationError{
				Name:   d.Name,
				Types:  []reflect.Type{existing.Type, d.Type},
				Reason: "name registered more than once",
			}
		}
		r.byName[d.Name] = d
	}
	return r, nil
}

// MustRegisterCommands is like RegisterCommands but panics on error.
// Use this only at startup, where a bad registration should be fatal.
func MustRegisterCommands(prototypes ...Command) *Registry {
	r, err := RegisterCommands(prototypes...)
	if err != nil {
		panic(fmt.Sprintf("command: %v", err))
	}
	return r
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry of the built-in vocabulary.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = MustRegisterCommands(Vocabulary()...)
	})
	return defaultRegistry
}

// TryResolve returns the descriptor registered under name.
func (r *Registry) TryResolve(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	return len(r.byName)
}

// Descriptors returns every descriptor sorted by name.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.byName))
	for _, d := range r.byName {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Catalog renders the commands and their exemplars for a system prompt.
func (r *Registry) Catalog() string {
	var b strings.Builder
	for i, d := range r.Descriptors() {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- `%s`: %s\n  Example: %s", d.Name, d.Description, d.Exemplar)
	}
	return b.String()
}

func describe(p Command) (Descriptor, error) {
	if p == nil {
		return Descriptor{}, &RegistrationError{Reason: "nil prototype"}
	}
	t := reflect.TypeOf(p)
	if t.Kind() != reflect.Struct {
		return Descriptor{}, &RegistrationError{
			Types:  []reflect.Type{t},
			Reason: "prototype must be a struct value",
		}
	}
	described, ok := p.(Described)
	if !ok {
		return Descriptor{}, &RegistrationError{
			Types:  []reflect.Type{t},
			Reason: "type has no command metadata",
		}
	}
	meta := described.Metadata()
	if meta.Name == "" {
		return Descriptor{}, &RegistrationError{
			Types:  []reflect.Type{t},
			Reason: "metadata has an empty name",
		}
	}
	if p.CommandName() != meta.Name {
		return Descriptor{}, &RegistrationError{
			Name:   meta.Name,
			Types:  []reflect.Type{t},
			Reason: fmt.Sprintf("CommandName() returns %q", p.CommandName()),
		}
	}

	exemplar, err := buildExemplar(meta.Name, meta.Example)
	if err != nil {
		return Descriptor{}, &RegistrationError{
			Name:   meta.Name,
			Types:  []reflect.Type{t},
			Reason: err.Error(),
		}
	}

	return Descriptor{
		Name:        meta.Name,
		Description: meta.Description,
		Exemplar:    exemplar,
		Type:        t,
		prototype:   reflect.ValueOf(p),
		fields:      fieldPlan(t),
	}, nil
}

// buildExemplar validates example and puts the discriminator first.
func buildExemplar(name, example string) (json.RawMessage, error) {
	nameJSON, err := json.Marshal(name)
	if err != nil {
		return nil, err
	}
	example = strings.TrimSpace(example)
	if example == "" {
		return json.RawMessage(`{"command":` + string(nameJSON) + `}`), nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(example), &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("example is not a JSON object: %q", example)
	}

	var out []byte
	if raw, ok := fields["command"]; ok {
		var supplied string
		if err := json.Unmarshal(raw, &supplied); err != nil || supplied != name {
			return nil, fmt.Errorf("example names command %s", raw)
		}
		out = []byte(example)
	} else {
		inner := strings.TrimSpace(example[1 : len(example)-1])
		if inner == "" {
			out = []byte(`{"command":` + string(nameJSON) + `}`)
		} else {
			out = []byte(`{"command":` + string(nameJSON) + `,` + inner + `}`)
		}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, out); err != nil {
		return nil, fmt.Errorf("example is not valid JSON: %w", err)
	}
	return json.RawMessage(compact.Bytes()), nil
}

// fieldPlan records how each exported field maps to a JSON property.
func fieldPlan(t reflect.Type) []fieldSpec {
	var specs []fieldSpec
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		specs = append(specs, fieldSpec{
			index:    i,
			name:     name,
			required: f.Tag.Get("command") == "required",
		})
	}
	return specs
}
