// Package main provides the CLI entry point for the monologue agent
// runtime: a REPL that wires one LLM backend, one optional session store,
// and one optional telemetry sink to the core loop.
//
// Basic usage:
//
//	monologue chat --config monologue.yaml
//
// Configuration can reference environment variables (e.g. api_key:
// ${ANTHROPIC_API_KEY}); see internal/config for the file format.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/nexuscore/monologue/internal/config"
	"github.com/nexuscore/monologue/internal/llmbackend"
	agentctx "github.com/nexuscore/monologue/internal/monologue/context"
	"github.com/nexuscore/monologue/internal/monologue/executor"
	"github.com/nexuscore/monologue/internal/monologue/hooks"
	"github.com/nexuscore/monologue/internal/monologue/llm"
	"github.com/nexuscore/monologue/internal/monologue/parser"
	"github.com/nexuscore/monologue/internal/monologue/registry"
	"github.com/nexuscore/monologue/internal/monologue/router"
	"github.com/nexuscore/monologue/internal/monologue/scheduler"
	"github.com/nexuscore/monologue/internal/monologue/schema"
	"github.com/nexuscore/monologue/internal/sessionstore"
	"github.com/nexuscore/monologue/internal/telemetry"
	execTool "github.com/nexuscore/monologue/internal/tools/exec"
	"github.com/nexuscore/monologue/internal/tools/knowledge"
	"github.com/nexuscore/monologue/internal/tools/memory"
	"github.com/nexuscore/monologue/internal/tools/reminders"
	"github.com/nexuscore/monologue/internal/tools/response"
	"github.com/nexuscore/monologue/internal/tools/subagent"
	"github.com/nexuscore/monologue/internal/tools/taskdone"
)

var version = "dev"

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string
	var logLevel string

	root := &cobra.Command{
		Use:   "monologue",
		Short: "A local, tool-using conversational agent runtime",
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("MONOLOGUE_CONFIG"), "path to configuration file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug|info|warn|error), overrides config")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg, logLevel)
			return runChat(cmd.Context(), cfg)
		},
	})

	return root
}

func setupLogging(cfg config.Config, override string) {
	level := cfg.Logging.Level
	if override != "" {
		level = override
	}
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	slog.SetDefault(slog.New(handler))
}

func buildBackend(ctx context.Context, cfg config.Config) (llm.Provider, error) {
	switch cfg.Backend.Kind {
	case "anthropic":
		return llmbackend.NewAnthropicBackend(llmbackend.AnthropicConfig{
			APIKey:       cfg.Backend.APIKey,
			BaseURL:      cfg.Backend.BaseURL,
			DefaultModel: cfg.Backend.DefaultModel,
			MaxTokens:    cfg.Backend.MaxTokens,
		})
	case "gemini":
		return llmbackend.NewGeminiBackend(ctx, llmbackend.GeminiConfig{
			APIKey:       cfg.Backend.APIKey,
			DefaultModel: cfg.Backend.DefaultModel,
		})
	default:
		return llmbackend.NewOpenAIBackend(llmbackend.OpenAIConfig{
			APIKey:       cfg.Backend.APIKey,
			BaseURL:      cfg.Backend.BaseURL,
			DefaultModel: cfg.Backend.DefaultModel,
		}), nil
	}
}

func buildStore(cfg config.Config) (agentctx.SessionStore, func(), error) {
	switch cfg.Store.Kind {
	case "sqlite":
		s, err := sessionstore.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "postgres":
		s, err := sessionstore.NewPostgresStore(sessionstore.PostgresConfig{DSN: cfg.Store.DSN})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}

func buildTelemetry(ctx context.Context, cfg config.Config) (agentctx.Telemetry, func(), error) {
	switch cfg.Telemetry.Kind {
	case "prometheus":
		sink := telemetry.NewPrometheusSink(prometheus.DefaultRegisterer)
		addr := cfg.Telemetry.MetricsAddr
		if addr == "" {
			addr = ":9190"
		}
		server := &http.Server{Addr: addr, Handler: promhttp.Handler()}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Warn("metrics server stopped", "error", err)
			}
		}()
		return sink, func() { _ = server.Close() }, nil
	case "tracing":
		sink, shutdown, err := telemetry.NewTracingSink(ctx, telemetry.TraceConfig{
			ServiceName: "monologue",
			Endpoint:    cfg.Telemetry.OTLPEndpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		return sink, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}, nil
	default:
		return nil, func() {}, nil
	}
}

func runChat(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()

	backend, err := buildBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build backend: %w", err)
	}

	store, closeStore, err := buildStore(cfg)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}
	defer closeStore()

	sink, closeTelemetry, err := buildTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build telemetry: %w", err)
	}
	defer closeTelemetry()

	hooksDispatcher := hooks.New(logger)

	agentContext := agentctx.New(agentctx.Config{
		MaxMonologueIterations: cfg.Session.MaxMonologueIterations,
		ChatModel:              cfg.Session.ChatModel,
	}, hooksDispatcher)
	agentContext.SessionStore = store
	agentContext.TelemetryHandle = sink
	// Subordinate output interleaves into the same stream as the root.
	agentContext.OnStream = func(agentID int, chunk string) {
		fmt.Print(chunk)
	}

	reg := registry.New(logger)
	memoryIndex := memory.NewIndex()
	sessionPool := execTool.NewSessionPool()
	defer sessionPool.Close()
	reminderScheduler := reminders.NewScheduler(func(message string) {
		fmt.Printf("\n[Reminder] %s\n> ", message)
	})
	defer reminderScheduler.Stop()

	recordMemoryOp := func(op string) {
		if sink != nil {
			sink.RecordMemoryOp(agentContext.SessionID, op)
		}
	}
	reg.RegisterBuiltin(response.New())
	reg.RegisterBuiltin(taskdone.New())
	reg.RegisterBuiltin(memory.New(memoryIndex, recordMemoryOp))
	reg.RegisterBuiltin(knowledge.New(memoryIndex))
	reg.RegisterBuiltin(execTool.New(sessionPool))
	reg.RegisterBuiltin(reminders.New(reminderScheduler))

	// Compile every registered arg_schema once so a malformed tool
	// declaration surfaces at boot instead of mid-conversation.
	for name, s := range reg.Schemas() {
		if _, err := schema.Compile(name, s.ArgSchema, s.RequiredArgs); err != nil {
			return fmt.Errorf("tool %s declares an invalid schema: %w", name, err)
		}
	}

	p := parser.New(reg, logger, func(f parser.FailureRecord) {
		logger.Warn("tool-call parse failed",
			"strategies", len(f.StrategyErrors), "text_len", len(f.RawText))
	})

	modelRouter := router.New(router.Config{
		Enabled:      cfg.Router.Enabled,
		ChatModel:    cfg.Session.ChatModel,
		Routes:       cfg.Router.Routes,
		ToolAffinity: cfg.Router.ToolAffinity,
	})
	if models, err := backend.ListModels(ctx); err == nil {
		modelRouter.SetAvailableModels(models)
	} else {
		logger.Warn("model list unavailable, routing unfiltered", "error", err)
	}

	toolTimeouts := make(map[string]time.Duration, len(cfg.Executor.ToolTimeoutsSeconds))
	for name, secs := range cfg.Executor.ToolTimeoutsSeconds {
		toolTimeouts[name] = time.Duration(secs * float64(time.Second))
	}
	exec := executor.New(reg, hooksDispatcher, agentContext.ToolCache, executor.Config{
		DefaultTimeout: time.Duration(cfg.Executor.DefaultTimeoutSeconds * float64(time.Second)),
		MaxConcurrency: cfg.Executor.MaxConcurrency,
		CacheEnabled:   cfg.Executor.CacheEnabled,
		ToolTimeouts:   toolTimeouts,
	}, logger)

	sched := scheduler.New(reg, p, modelRouter, exec, backend, nil, logger)

	root := agentContext.CreateAgent(0, nil, "")
	reg.RegisterBuiltin(subagent.New(agentContext, root, sched))

	fmt.Printf("monologue %s — session %s (ctrl-d to exit)\n", version, agentContext.SessionID)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}

		final := sched.Run(ctx, agentContext, root, line)
		fmt.Printf("\n%s\n", final)

		if ctx.Err() != nil {
			break
		}
	}
	return scanner.Err()
}
