package command

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type duplicateChatPost struct {
	Text string `json:"text"`
}

func (duplicateChatPost) CommandName() string { return "chat.post" }

func (duplicateChatPost) Metadata() Metadata {
	return Metadata{Name: "chat.post", Description: "collides"}
}

type undescribed struct{}

func (undescribed) CommandName() string { return "x.undescribed" }

type badExample struct{}

func (badExample) CommandName() string { return "x.bad" }

func (badExample) Metadata() Metadata {
	return Metadata{Name: "x.bad", Example: `["not", "an", "object"]`}
}

type mismatchedExample struct{}

func (mismatchedExample) CommandName() string { return "x.mismatch" }

func (mismatchedExample) Metadata() Metadata {
	return Metadata{Name: "x.mismatch", Example: `{"command": "x.other"}`}
}

func TestEveryRegisteredCommandResolves(t *testing.T) {
	r := Default()
	require.Equal(t, len(Vocabulary()), r.Len())

	for _, d := range r.Descriptors() {
		resolved, ok := r.TryResolve(d.Name)
		require.True(t, ok, "expected %q to resolve", d.Name)
		assert.Equal(t, d.Name, resolved.Name)

		var exemplar map[string]any
		require.NoError(t, json.Unmarshal(resolved.Exemplar, &exemplar))
		assert.Equal(t, d.Name, exemplar["command"])
		assert.True(t, strings.HasPrefix(string(resolved.Exemplar), `{"command":`),
			"discriminator should be the first key in %s", resolved.Exemplar)
	}
}

func TestTryResolveMissing(t *testing.T) {
	_, ok := Default().TryResolve("x.unknown")
	assert.False(t, ok)
}

func TestExemplarWithoutExample(t *testing.T) {
	d, ok := Default().TryResolve("noop")
	require.True(t, ok)
	assert.JSONEq(t, `{"command": "noop"}`, string(d.Exemplar))
}

func TestExemplarInjectsDiscriminator(t *testing.T) {
	d, ok := Default().TryResolve("chat.post")
	require.True(t, ok)
	assert.Equal(t, `{"command":"chat.post","body":"The message to post","synthesized":true}`, string(d.Exemplar))
}

func TestDuplicateRegistrationFails(t *testing.T) {
	_, err := RegisterCommands(ChatPost{}, duplicateChatPost{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRegistration))

	var regErr *RegistrationError
	require.True(t, errors.As(err, &regErr))
	assert.Equal(t, "chat.post", regErr.Name)
	assert.Contains(t, err.Error(), "command.ChatPost")
	assert.Contains(t, err.Error(), "command.duplicateChatPost")
}

func TestMissingMetadataFails(t *testing.T) {
	_, err := RegisterCommands(NoOp{}, undescribed{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRegistration))
	assert.Contains(t, err.Error(), "no command metadata")
}

func TestPointerPrototypeFails(t *testing.T) {
	_, err := RegisterCommands(&ChatPost{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "struct value")
}

func TestExampleMustBeObject(t *testing.T) {
	_, err := RegisterCommands(badExample{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a JSON object")
}

func TestExampleMustNameItsCommand(t *testing.T) {
	_, err := RegisterCommands(mismatchedExample{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRegistration))
}

func TestMustRegisterCommandsPanics(t *testing.T) {
	assert.Panics(t, func() {
		MustRegisterCommands(ChatPost{}, duplicateChatPost{})
	})
}

func TestRequiredFields(t *testing.T) {
	d, ok := Default().TryResolve("rem.set")
	require.True(t, ok)
	assert.Equal(t, []string{"key", "value"}, d.Required())
}

func TestCatalogListsEveryCommand(t *testing.T) {
	catalog := Default().Catalog()
	for _, d := range Default().Descriptors() {
		assert.Contains(t, catalog, "`"+d.Name+"`")
		assert.Contains(t, catalog, string(d.Exemplar))
	}
}
