/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package runner drives a tool-augmented model conversation: the model
// proposes an action, a registered tool executes it, and the result is fed
// back until the model stops requesting tools or a tool sets the final result.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"

	"github.com/zagent-dev/zagent/agents/metrics"
	"github.com/zagent-dev/zagent/agents/prompt"
	"github.com/zagent-dev/zagent/agents/result"
	"github.com/zagent-dev/zagent/agents/toolcall"
	"github.com/zagent-dev/zagent/retry"
)

// ErrRoundLimit is returned when the conversation exceeds the configured
// round cap without reaching a terminal state.
var ErrRoundLimit = errors.New("conversation round limit exceeded")

// Interface is the public interface for agent execution.
type Interface[Request prompt.Bindable, Response any] interface {
	// Execute runs the conversation for the given request with the given tools.
	// A zero Response with a nil error means the model terminated without
	// producing a result (an incomplete run, left to the caller to interpret).
	Execute(ctx context.Context, request Request, tools map[string]toolcall.Tool[Response]) (Response, error)
}

type agentRunner[Request prompt.Bindable, Response any] struct {
	client             anthropic.Client
	modelName          string
	systemInstructions *prompt.Prompt
	userPrompt         *prompt.Prompt
	maxTokens          int64
	temperature        float64
	maxRounds          int
	retryConfig        retry.Config
	genai              *metrics.GenAI
}

// New creates a runner for the given client and user prompt template.
func New[Request prompt.Bindable, Response any](
	client anthropic.Client,
	userPrompt *prompt.Prompt,
	opts ...Option[Request, Response],
) (Interface[Request, Response], error) {
	if userPrompt == nil {
		return nil, errors.New("user prompt cannot be nil")
	}

	r := &agentRunner[Request, Response]{
		client:      client,
		modelName:   "claude-sonnet-4-5",
		userPrompt:  userPrompt,
		maxTokens:   8192,
		temperature: 0.1,
		maxRounds:   24,
		retryConfig: retry.DefaultConfig(),
		genai:       metrics.NewGenAI("zagent.agents"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}

	return r, nil
}

// Execute implements Interface.
func (r *agentRunner[Request, Response]) Execute(
	ctx context.Context,
	request Request,
	tools map[string]toolcall.Tool[Response],
) (response Response, err error) {
	log := clog.FromContext(ctx)

	bound, err := request.Bind(r.userPrompt)
	if err != nil {
		return response, fmt.Errorf("binding request to prompt: %w", err)
	}
	userText, err := bound.Build()
	if err != nil {
		return response, fmt.Errorf("building user prompt: %w", err)
	}

	toolDefs, err := toolcall.ClaudeTools(tools)
	if err != nil {
		return response, err
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(r.modelName),
		MaxTokens:   r.maxTokens,
		Temperature: anthropic.Float(r.temperature),
		Tools:       toolDefs,
		Messages: []anthropic.MessageParam{{
			Role: anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(userText),
			},
		}},
	}

	if r.systemInstructions != nil {
		systemText, err := r.systemInstructions.Build()
		if err != nil {
			return response, fmt.Errorf("building system prompt: %w", err)
		}
		params.System = []anthropic.TextBlockParam{{Text: systemText}}
	}

	log.With("prompt_length", len(userText)).
		With("model", r.modelName).
		Info("Starting agent execution")

	// finalResult is set by a tool handler to terminate the conversation.
	var finalResult Response
	finalResultPtr := &finalResult

	for round := 1; round <= r.maxRounds; round++ {
		r.genai.RecordRound(ctx, r.modelName)

		message, err := retry.Do(ctx, r.retryConfig, "create_message", isRetryableModelError, func() (*anthropic.Message, error) {
			return r.client.Messages.New(ctx, params)
		})
		if err != nil {
			return response, fmt.Errorf("requesting model response: %w", err)
		}

		if message.Usage.InputTokens > 0 || message.Usage.OutputTokens > 0 {
			r.genai.RecordTokens(ctx, r.modelName, message.Usage.InputTokens, message.Usage.OutputTokens)
		}

		var toolUses []anthropic.ToolUseBlock
		var textContent string
		for _, content := range message.Content {
			switch content.Type {
			case "text":
				textContent = content.Text
			case "tool_use":
				toolUses = append(toolUses, anthropic.ToolUseBlock{
					ID:    content.ID,
					Name:  content.Name,
					Input: content.Input,
				})
			}
		}

		if len(toolUses) > 0 {
			params.Messages = append(params.Messages, message.ToParam())

			var toolResults []anthropic.ContentBlockParamUnion
			for _, toolUse := range toolUses {
				r.genai.RecordToolCall(ctx, r.modelName, toolUse.Name)

				block, err := r.executeToolCall(ctx, toolUse, tools, finalResultPtr)
				if err != nil {
					return response, err
				}
				toolResults = append(toolResults, block)

				if !reflect.ValueOf(finalResult).IsZero() {
					log.With("tool", toolUse.Name).Info("Tool set final result, ending conversation")
					return finalResult, nil
				}
			}

			params.Messages = append(params.Messages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleUser,
				Content: toolResults,
			})
			continue
		}

		// No tool requests: the model considers itself done. Only a tool
		// handler may set the final result, so a text-only terminal is an
		// incomplete run regardless of what the text claims.
		if textContent != "" {
			log.With("rounds", round).
				With("response", result.ExtractJSON(textContent)).
				Warn("Agent terminated without invoking a terminal tool")
			return response, nil
		}

		return response, errors.New("model response had no content")
	}

	return response, fmt.Errorf("%w: %d rounds", ErrRoundLimit, r.maxRounds)
}

// executeToolCall dispatches a single tool invocation and wraps its response
// map as a tool_result block for the conversation.
func (r *agentRunner[Request, Response]) executeToolCall(
	ctx context.Context,
	toolUse anthropic.ToolUseBlock,
	tools map[string]toolcall.Tool[Response],
	finalResult *Response,
) (anthropic.ContentBlockParamUnion, error) {
	log := clog.FromContext(ctx)
	log.With("tool", toolUse.Name).With("id", toolUse.ID).Info("Executing tool call")

	var resultMap map[string]any

	if tool, ok := tools[toolUse.Name]; ok {
		var args map[string]any
		if err := json.Unmarshal(toolUse.Input, &args); err != nil {
			resultMap = map[string]any{
				"error": fmt.Sprintf("failed to parse tool input: %v", err),
			}
		} else {
			resultMap = tool.Handler(ctx, toolcall.ToolCall{
				ID:   toolUse.ID,
				Name: toolUse.Name,
				Args: args,
			}, finalResult)
		}
	} else {
		log.With("tool", toolUse.Name).Error("Unknown tool requested")
		resultMap = map[string]any{
			"error": fmt.Sprintf("unknown tool: %q", toolUse.Name),
		}
	}

	resultBytes, err := json.Marshal(resultMap)
	if err != nil {
		return anthropic.ContentBlockParamUnion{}, fmt.Errorf("marshaling tool result: %w", err)
	}

	return anthropic.ContentBlockParamUnion{
		OfToolResult: &anthropic.ToolResultBlockParam{
			ToolUseID: toolUse.ID,
			Content: []anthropic.ToolResultBlockParamContentUnion{{
				OfText: &anthropic.TextBlockParam{Text: string(resultBytes)},
			}},
		},
	}, nil
}
