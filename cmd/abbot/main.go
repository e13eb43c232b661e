// Package main provides the abbot CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/abbot/cli"
	"github.com/richinex/abbot/config"
)

var (
	// Global flags
	configPath string
	provider   string
	promptPath string
	maxIter    int
	debug      bool
	verbose    bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "abbot",
		Short: "Chat assistant that answers from organizational memory",
		Long: `A CLI for the abbot chat assistant.

Each message starts a turn: the model picks one command per iteration
(search or read memory, post a reply, or do nothing) until it posts an
answer or runs out of iterations. Without a chat API token, replies are
printed to the terminal.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider ("+strings.Join(config.SupportedProviders(), ", ")+")")
	rootCmd.PersistentFlags().StringVar(&promptPath, "prompt", "", "Path to a system prompt template")
	rootCmd.PersistentFlags().IntVarP(&maxIter, "max-iter", "m", 0, "Maximum iterations per turn (0 uses config)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Mirror each iteration to the chat room")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logs")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(commandsCmd())
	rootCmd.AddCommand(rememberCmd())
	rootCmd.AddCommand(forgetCmd())
	rootCmd.AddCommand(recallCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		ConfigPath: configPath,
		Provider:   provider,
		PromptPath: promptPath,
		MaxIter:    maxIter,
		Debug:      debug,
		Verbose:    verbose,
	}
}

// withApp builds the app, runs fn and closes the app.
func withApp(fn func(app *cli.App) error) error {
	app, err := cli.NewApp(options())
	if err != nil {
		return err
	}
	runErr := fn(app)
	if err := app.Close(); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *cli.App) error {
				return app.Ask(cmd.Context(), strings.Join(args, " "))
			})
		},
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long: `Start an interactive conversation. Every line is one message in the
same session, so earlier turns stay in the model's context.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *cli.App) error {
				return app.Chat(cmd.Context(), os.Stdin)
			})
		},
	}
}

func commandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List the commands the model can issue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *cli.App) error {
				app.ListCommands(verbose)
				return nil
			})
		},
	}
}

func rememberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remember [key] [value]",
		Short: "Store a memory",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *cli.App) error {
				return app.Remember(cmd.Context(), args[0], strings.Join(args[1:], " "))
			})
		},
	}
}

func forgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget [key]",
		Short: "Delete a memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *cli.App) error {
				return app.Forget(cmd.Context(), args[0])
			})
		},
	}
}

func recallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recall [terms...]",
		Short: "Search memories by any of the terms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *cli.App) error {
				return app.Recall(cmd.Context(), args)
			})
		},
	}
}
