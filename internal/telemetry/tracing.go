package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	agentctx "github.com/nexuscore/monologue/internal/monologue/context"
)

// TraceConfig configures the tracing sink.
type TraceConfig struct {
	ServiceName string
	// Endpoint is the OTLP/gRPC collector address (e.g. "localhost:4317").
	// Empty disables exporting; spans are still created in-process.
	Endpoint string
}

// TracingSink implements the telemetry contract as OpenTelemetry spans:
// one span per LLM call, tool call, and loop iteration, with a
// session-root span finalized by terminal-tool name.
type TracingSink struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider

	mu       sync.Mutex
	sessions map[string]trace.Span
}

// NewTracingSink builds the sink; shutdown must be called on exit to flush
// pending spans.
func NewTracingSink(ctx context.Context, cfg TraceConfig) (*TracingSink, func(context.Context) error, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "monologue"
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("build trace resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.Endpoint != "" {
		exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		))
		if err != nil {
			return nil, nil, fmt.Errorf("create otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)

	sink := &TracingSink{
		tracer:   provider.Tracer("monologue"),
		provider: provider,
		sessions: make(map[string]trace.Span),
	}
	return sink, provider.Shutdown, nil
}

func (s *TracingSink) sessionSpan(sessionID string) (context.Context, trace.Span) {
	s.mu.Lock()
	defer s.mu.Unlock()
	span, ok := s.sessions[sessionID]
	if !ok {
		_, span = s.tracer.Start(context.Background(), "monologue.session",
			trace.WithAttributes(attribute.String("session.id", sessionID)))
		s.sessions[sessionID] = span
	}
	return trace.ContextWithSpan(context.Background(), span), span
}

func (s *TracingSink) event(sessionID, name string, attrs ...attribute.KeyValue) {
	parent, _ := s.sessionSpan(sessionID)
	_, span := s.tracer.Start(parent, name, trace.WithAttributes(attrs...))
	span.End()
}

// RecordLLMCall records one LLM request span.
func (s *TracingSink) RecordLLMCall(sessionID, model string, durationMS int64, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("llm.model", model),
		attribute.Int64("llm.duration_ms", durationMS),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("llm.error", err.Error()))
	}
	s.event(sessionID, "monologue.llm_call", attrs...)
}

// RecordToolCall records one tool call span.
func (s *TracingSink) RecordToolCall(sessionID string, metric agentctx.ToolMetric) {
	attrs := []attribute.KeyValue{
		attribute.String("tool.name", metric.Tool),
		attribute.String("tool.args_key", metric.ArgsKey),
		attribute.Int64("tool.duration_ms", metric.DurationMS),
		attribute.Bool("tool.cached", metric.Cached),
		attribute.String("tool.summary", metric.Summary),
	}
	if metric.Err != "" {
		attrs = append(attrs, attribute.String("tool.error", metric.Err))
	}
	s.event(sessionID, "monologue.tool_call", attrs...)
}

// RecordIteration records one loop iteration span.
func (s *TracingSink) RecordIteration(sessionID string, agentID, iteration int) {
	s.event(sessionID, "monologue.iteration",
		attribute.Int("agent.id", agentID),
		attribute.Int("iteration", iteration),
	)
}

// RecordMemoryOp records one memory facade operation span.
func (s *TracingSink) RecordMemoryOp(sessionID, op string) {
	s.event(sessionID, "monologue.memory_op", attribute.String("memory.op", op))
}

// Finalize ends the session-root span with the terminal tool's name.
func (s *TracingSink) Finalize(sessionID, terminalTool string) {
	s.mu.Lock()
	span, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return
	}
	span.SetAttributes(
		attribute.String("terminal_tool", terminalTool),
		attribute.String("finalized_at", time.Now().UTC().Format(time.RFC3339)),
	)
	span.End()
}
