/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package metrics records OpenTelemetry metrics for model interactions.
package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// GenAI provides counters for token usage and tool calls. Counter creation
// degrades gracefully: on failure a no-op counter is used instead of failing
// agent construction.
type GenAI struct {
	meter            metric.Meter
	promptTokens     metric.Int64Counter
	completionTokens metric.Int64Counter
	toolCalls        metric.Int64Counter
	rounds           metric.Int64Counter
}

// NewGenAI creates a GenAI metrics instance under the given meter name.
// The model name is recorded as a dimension rather than baked into the meter,
// so a single meter serves every configured model.
func NewGenAI(meterName string) *GenAI {
	meter := otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))

	promptTokens, err := meter.Int64Counter("genai.token.prompt",
		metric.WithDescription("The number of prompt tokens used"),
		metric.WithUnit("{tokens}"))
	if err != nil {
		slog.Warn("Failed to create prompt tokens counter, metrics will be disabled", "error", err, "meter", meterName)
		promptTokens = noop.Int64Counter{}
	}

	completionTokens, err := meter.Int64Counter("genai.token.completion",
		metric.WithDescription("The number of completion tokens used"),
		metric.WithUnit("{tokens}"))
	if err != nil {
		slog.Warn("Failed to create completion tokens counter, metrics will be disabled", "error", err, "meter", meterName)
		completionTokens = noop.Int64Counter{}
	}

	toolCalls, err := meter.Int64Counter("genai.tool.calls",
		metric.WithDescription("The number of tool calls made during execution"),
		metric.WithUnit("{calls}"))
	if err != nil {
		slog.Warn("Failed to create tool call counter, metrics will be disabled", "error", err, "meter", meterName)
		toolCalls = noop.Int64Counter{}
	}

	rounds, err := meter.Int64Counter("genai.conversation.rounds",
		metric.WithDescription("The number of propose/execute rounds per run"),
		metric.WithUnit("{rounds}"))
	if err != nil {
		slog.Warn("Failed to create rounds counter, metrics will be disabled", "error", err, "meter", meterName)
		rounds = noop.Int64Counter{}
	}

	return &GenAI{
		meter:            meter,
		promptTokens:     promptTokens,
		completionTokens: completionTokens,
		toolCalls:        toolCalls,
		rounds:           rounds,
	}
}

// RecordTokens records prompt and completion token usage for a model call.
func (m *GenAI) RecordTokens(ctx context.Context, model string, promptTokens, completionTokens int64) {
	attrs := metric.WithAttributes(attribute.String("model", model))
	m.promptTokens.Add(ctx, promptTokens, attrs)
	m.completionTokens.Add(ctx, completionTokens, attrs)
}

// RecordToolCall records a single tool invocation.
func (m *GenAI) RecordToolCall(ctx context.Context, model, toolName string) {
	m.toolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("tool", toolName),
	))
}

// RecordRound records one propose/execute round of the conversation loop.
func (m *GenAI) RecordRound(ctx context.Context, model string) {
	m.rounds.Add(ctx, 1, metric.WithAttributes(attribute.String("model", model)))
}
