/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
)

// ClaudeParam converts a Definition into the Anthropic tool parameter shape.
func ClaudeParam(def Definition) (anthropic.ToolParam, error) {
	schema, err := claudeInputSchema(def)
	if err != nil {
		return anthropic.ToolParam{}, err
	}
	return anthropic.ToolParam{
		Name:        def.Name,
		Description: anthropic.String(def.Description),
		InputSchema: schema,
	}, nil
}

// ClaudeTools converts a tool map into Anthropic tool definitions,
// ready to attach to a message request.
func ClaudeTools[Resp any](tools map[string]Tool[Resp]) ([]anthropic.ToolUnionParam, error) {
	defs := make([]anthropic.ToolUnionParam, 0, len(tools))
	for name, tool := range tools {
		param, err := ClaudeParam(tool.Def)
		if err != nil {
			return nil, fmt.Errorf("converting tool %q: %w", name, err)
		}
		defs = append(defs, anthropic.ToolUnionParam{OfTool: &param})
	}
	return defs, nil
}

func claudeInputSchema(def Definition) (anthropic.ToolInputSchemaParam, error) {
	if def.InputSchema != nil {
		return reflectedInputSchema(def.InputSchema)
	}

	properties := make(map[string]any, len(def.Parameters))
	var required []string
	for _, p := range def.Parameters {
		properties[p.Name] = map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return anthropic.ToolInputSchemaParam{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}, nil
}

// reflectedInputSchema round-trips a jsonschema.Schema through JSON to get the
// plain maps the Anthropic SDK expects.
func reflectedInputSchema(schema *jsonschema.Schema) (anthropic.ToolInputSchemaParam, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return anthropic.ToolInputSchemaParam{}, fmt.Errorf("marshaling schema: %w", err)
	}

	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return anthropic.ToolInputSchemaParam{}, fmt.Errorf("unmarshaling schema: %w", err)
	}

	out := anthropic.ToolInputSchemaParam{Type: "object"}
	if props, ok := asMap["properties"].(map[string]any); ok {
		out.Properties = props
	}
	if reqs, ok := asMap["required"].([]any); ok {
		required := make([]string, 0, len(reqs))
		for _, r := range reqs {
			if s, ok := r.(string); ok {
				required = append(required, s)
			}
		}
		out.Required = required
	}
	return out, nil
}
