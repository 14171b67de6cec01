// Package telemetry provides concrete fire-and-forget telemetry sinks for
// the monologue core: Prometheus metrics and OpenTelemetry traces. Sinks
// never block the loop and never surface errors into it.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	agentctx "github.com/nexuscore/monologue/internal/monologue/context"
)

// PrometheusSink records core runtime metrics as Prometheus counters and
// histograms.
type PrometheusSink struct {
	llmRequestCounter  *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	toolCallCounter    *prometheus.CounterVec
	toolCallDuration   *prometheus.HistogramVec
	iterationCounter   *prometheus.CounterVec
	memoryOpCounter    *prometheus.CounterVec
	monologueCounter   *prometheus.CounterVec
}

// NewPrometheusSink registers the metric families on the given registerer
// (pass prometheus.DefaultRegisterer outside tests).
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	factory := promauto.With(reg)
	return &PrometheusSink{
		llmRequestCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "monologue_llm_requests_total",
			Help: "LLM requests by model and status.",
		}, []string{"model", "status"}),
		llmRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "monologue_llm_request_duration_seconds",
			Help:    "LLM request latency in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"model"}),
		toolCallCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "monologue_tool_calls_total",
			Help: "Tool calls by tool name, cache status, and outcome.",
		}, []string{"tool", "cached", "status"}),
		toolCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "monologue_tool_call_duration_seconds",
			Help:    "Tool execution time in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"tool"}),
		iterationCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "monologue_loop_iterations_total",
			Help: "Monologue loop iterations.",
		}, []string{"session"}),
		memoryOpCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "monologue_memory_ops_total",
			Help: "Memory facade operations by action.",
		}, []string{"op"}),
		monologueCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "monologue_turns_total",
			Help: "Completed monologue turns by terminal tool.",
		}, []string{"terminal_tool"}),
	}
}

// RecordLLMCall records one LLM request.
func (s *PrometheusSink) RecordLLMCall(sessionID, model string, durationMS int64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.llmRequestCounter.WithLabelValues(model, status).Inc()
	s.llmRequestDuration.WithLabelValues(model).Observe(float64(durationMS) / 1000)
}

// RecordToolCall records one tool call.
func (s *PrometheusSink) RecordToolCall(sessionID string, metric agentctx.ToolMetric) {
	cachedLabel := "false"
	if metric.Cached {
		cachedLabel = "true"
	}
	status := "success"
	if metric.Err != "" {
		status = "error"
	}
	s.toolCallCounter.WithLabelValues(metric.Tool, cachedLabel, status).Inc()
	s.toolCallDuration.WithLabelValues(metric.Tool).Observe(float64(metric.DurationMS) / 1000)
}

// RecordIteration records one loop iteration.
func (s *PrometheusSink) RecordIteration(sessionID string, agentID, iteration int) {
	s.iterationCounter.WithLabelValues(sessionID).Inc()
}

// RecordMemoryOp records one memory facade operation.
func (s *PrometheusSink) RecordMemoryOp(sessionID, op string) {
	s.memoryOpCounter.WithLabelValues(op).Inc()
}

// Finalize records the turn's terminal tool.
func (s *PrometheusSink) Finalize(sessionID, terminalTool string) {
	s.monologueCounter.WithLabelValues(terminalTool).Inc()
}
