// Command execution for CLI commands.
//
// Information Hiding:
// - Component wiring (provider, chat client, memory store, responder)
// - Session setup for console conversations
// - Output formatting hidden

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richinex/abbot/chat"
	"github.com/richinex/abbot/command"
	"github.com/richinex/abbot/config"
	"github.com/richinex/abbot/internal/logging"
	"github.com/richinex/abbot/llm"
	"github.com/richinex/abbot/memory"
	"github.com/richinex/abbot/model"
	"github.com/richinex/abbot/responder"
)

// BotName is how the assistant introduces itself.
const BotName = "Abbot"

// Options holds CLI execution options. Zero values defer to configuration.
type Options struct {
	ConfigPath string
	Provider   string
	PromptPath string
	MaxIter    int
	Debug      bool
	Verbose    bool

	// Completer replaces the configured LLM provider (tests).
	Completer responder.Completer
	// Out receives console chat output. Defaults to os.Stdout.
	Out io.Writer
}

// App holds the wired components behind every CLI command.
type App struct {
	Settings config.Settings
	Logger   *zap.Logger
	Registry *command.Registry
	Store    memory.Store

	opts    Options
	out     io.Writer
	chat    chat.Client
	closers []func() error
}

// NewApp loads configuration and builds the shared components. The LLM
// provider is created lazily so memory commands work without an API key.
func NewApp(opts Options) (*App, error) {
	settings, err := config.Load(opts.ConfigPath, opts.Provider)
	if err != nil {
		return nil, err
	}
	if opts.MaxIter > 0 {
		settings.Responder.MaxIterations = opts.MaxIter
	}
	if opts.Debug {
		settings.Responder.Debug = true
	}

	level := settings.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logger, err := logging.New(level)
	if err != nil {
		return nil, err
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	app := &App{
		Settings: settings,
		Logger:   logger,
		Registry: command.Default(),
		opts:     opts,
		out:      out,
	}

	store, err := openStore(settings.Memory)
	if err != nil {
		return nil, err
	}
	app.Store = store
	if c, ok := store.(io.Closer); ok {
		app.closers = append(app.closers, c.Close)
	}

	if settings.Chat.APIToken != "" {
		app.chat = chat.NewSlackClient(
			chat.WithBaseURL(settings.Chat.BaseURL),
			chat.WithMaxRetries(settings.Chat.MaxRetries),
			chat.WithLogger(logger.Named("chat")),
		)
	} else {
		app.chat = chat.NewConsoleClient(out)
	}

	return app, nil
}

// Close releases resources held by the app.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}

func openStore(cfg config.MemoryConfig) (memory.Store, error) {
	switch cfg.Driver {
	case config.MemoryDriverSqlite:
		store, err := memory.OpenSqlite(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open memory store: %w", err)
		}
		return store, nil
	default:
		return memory.NewInMemoryStore(), nil
	}
}

// completer returns the injected completer or builds one from the configured provider.
func (a *App) completer() (responder.Completer, error) {
	if a.opts.Completer != nil {
		return a.opts.Completer, nil
	}
	provider, err := createProvider(a.Settings)
	if err != nil {
		return nil, err
	}
	client := llm.NewClient(provider)
	a.Logger.Debug("llm client ready",
		zap.String("provider", client.Provider().Name()),
		zap.String("default_model", client.Provider().DefaultModel()))
	return client, nil
}

func createProvider(settings config.Settings) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	apiKey, err := config.APIKeyFor(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	return providerType.
		Model(settings.LLM.Model).
		MaxTokens(settings.LLM.MaxTokens).
		APIKey(apiKey)
}

// newResponder wires a responder from the app's components.
func (a *App) newResponder() (*responder.Responder, error) {
	client, err := a.completer()
	if err != nil {
		return nil, err
	}
	return responder.New(a.Registry, client, a.chat, a.Store,
		responder.WithMaxIterations(a.Settings.Responder.MaxIterations),
		responder.WithChatToken(a.Settings.Chat.APIToken),
		responder.WithLogger(a.Logger.Named("responder")),
	), nil
}

// consoleUser identifies whoever runs the CLI.
func consoleUser() model.User {
	name := os.Getenv("USER")
	if name == "" {
		name = "console"
	}
	return model.User{ID: "cli-" + name, Name: name}
}

// NewSession starts a session for the console user.
func (a *App) NewSession() (*model.Session, error) {
	prompt, err := RenderSystemPrompt(a.opts.PromptPath, BotName, a.Settings.Organization, a.Registry)
	if err != nil {
		return nil, err
	}
	templateName := DefaultPromptTemplate
	if a.opts.PromptPath != "" {
		templateName = a.opts.PromptPath
	}
	return model.NewSession(model.SessionOptions{
		Organization: a.Settings.Organization,
		Room:         a.Settings.Chat.Room,
		Initiator:    consoleUser(),
		ModelSettings: model.ModelSettings{
			Model:          a.Settings.LLM.Model,
			Temperature:    float32(a.Settings.LLM.Temperature),
			PromptTemplate: templateName,
		},
		SystemPrompt: prompt,
		DebugMode:    a.Settings.Responder.Debug,
	}), nil
}

func (a *App) message(session *model.Session, text string) model.ChatMessage {
	return model.ChatMessage{
		ID:     uuid.New().String(),
		From:   session.Initiator,
		Text:   text,
		Room:   session.Room,
		SentAt: time.Now(),
	}
}

// Ask runs a single turn for question in a fresh session.
func (a *App) Ask(ctx context.Context, question string) error {
	r, err := a.newResponder()
	if err != nil {
		return err
	}
	session, err := a.NewSession()
	if err != nil {
		return err
	}
	_, err = r.Respond(ctx, session, a.message(session, question))
	return err
}

// Chat runs an interactive session reading one message per line from in.
// A failed turn is reported and the session continues.
func (a *App) Chat(ctx context.Context, in io.Reader) error {
	r, err := a.newResponder()
	if err != nil {
		return err
	}
	session, err := a.NewSession()
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Chat with %s (%s, %s). Type 'exit' to quit.\n\n",
		BotName, a.Settings.LLM.Provider, a.Settings.LLM.Model)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(a.out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		if _, err := r.Respond(ctx, session, a.message(session, line)); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.Logger.Debug("turn failed", zap.Error(err))
		}
		fmt.Fprintln(a.out)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	fmt.Fprintf(a.out, "\n%d turn(s).\n", len(session.Turns()))
	return nil
}

// Remember stores value under key.
func (a *App) Remember(ctx context.Context, key, value string) error {
	entry, err := a.Store.Set(ctx, key, value, a.Settings.Organization, consoleUser().ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Remembered `%s`.\n", entry.Name)
	return nil
}

// Forget deletes key.
func (a *App) Forget(ctx context.Context, key string) error {
	if err := a.Store.Delete(ctx, key, a.Settings.Organization); err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			return fmt.Errorf("nothing remembered as `%s`", key)
		}
		return err
	}
	fmt.Fprintf(a.out, "Forgot `%s`.\n", key)
	return nil
}

// Recall prints entries matching any of terms.
func (a *App) Recall(ctx context.Context, terms []string) error {
	entries, err := a.Store.Search(ctx, terms, a.Settings.Organization)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, responder.NoMemoriesMessage)
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(a.out, "%s = %s\n", e.Name, e.Content)
	}
	return nil
}

// ListCommands prints the command vocabulary the model is taught.
func (a *App) ListCommands(verbose bool) {
	descriptors := a.Registry.Descriptors()
	fmt.Fprintf(a.out, "Commands (%d):\n\n", a.Registry.Len())
	for _, d := range descriptors {
		fmt.Fprintf(a.out, "  %-12s %s\n", d.Name, d.Description)
		if verbose {
			fmt.Fprintf(a.out, "  %-12s example: %s\n", "", d.Exemplar)
			if req := d.Required(); len(req) > 0 {
				fmt.Fprintf(a.out, "  %-12s required: %s\n", "", strings.Join(req, ", "))
			}
		}
	}
}
