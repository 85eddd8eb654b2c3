/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

import (
	"context"

	"github.com/invopop/jsonschema"

	"github.com/zagent-dev/zagent/agents/toolcall/params"
)

// ToolCall is a provider-independent representation of a requested tool invocation.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Definition describes a tool's schema. Most tools enumerate Parameters;
// tools with nested inputs can supply a reflected InputSchema instead,
// which takes precedence when set.
type Definition struct {
	Name        string
	Description string
	Parameters  []Parameter
	InputSchema *jsonschema.Schema
}

// Parameter describes a single flat tool parameter.
type Parameter struct {
	Name        string
	Type        string // "string", "integer", "boolean", "number"
	Description string
	Required    bool
}

// Tool pairs a definition with its handler. The handler returns its outcome
// as a response map; failures are data for the model, never panics or errors.
// A handler may set *result to terminate the conversation with a final value.
type Tool[Resp any] struct {
	Def     Definition
	Handler func(ctx context.Context, call ToolCall, result *Resp) map[string]any
}

// Param extracts a required parameter from the tool call args.
// On failure it returns an error response map to hand back to the model.
func Param[T any](call ToolCall, name string) (T, map[string]any) {
	v, err := params.Extract[T](call.Args, name)
	if err != nil {
		return v, params.Error("%s", err)
	}
	return v, nil
}

// OptionalParam extracts an optional parameter from the tool call args.
func OptionalParam[T any](call ToolCall, name string, defaultValue T) (T, map[string]any) {
	v, err := params.ExtractOptional[T](call.Args, name, defaultValue)
	if err != nil {
		return v, params.Error("%s", err)
	}
	return v, nil
}
