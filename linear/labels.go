/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

package linear

import (
	"context"
	"encoding/json"
	"fmt"
)

// Label is a Linear issue label.
type Label struct {
	ID          string
	Name        string
	Color       string
	Description string
}

// LabelSpec describes a label to resolve: the name is the lookup key, the
// color and description are only applied when the label has to be created.
type LabelSpec struct {
	Name        string
	Color       string // "#RRGGBB"
	Description string
}

// GetLabel resolves a label by case-insensitive name, creating it from the
// spec if it does not exist. An existing label is returned unchanged; the
// spec's color and description never overwrite it.
//
// Concurrent callers racing on the same name may both create the label.
// Linear does not give us a uniqueness transaction here, so the duplicate is
// tolerated rather than prevented.
func (c *Client) GetLabel(ctx context.Context, spec LabelSpec) (Label, error) {
	const query = `query($name: String!) {
  issueLabels(filter: { name: { eqIgnoreCase: $name } }) {
    nodes { id name color description }
  }
}`
	data, err := c.execute(ctx, query, map[string]any{"name": spec.Name})
	if err != nil {
		return Label{}, fmt.Errorf("looking up label %q: %w", spec.Name, err)
	}

	var result struct {
		IssueLabels struct {
			Nodes []labelNode `json:"nodes"`
		} `json:"issueLabels"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return Label{}, fmt.Errorf("decoding label lookup: %w", err)
	}

	if len(result.IssueLabels.Nodes) > 0 {
		return result.IssueLabels.Nodes[0].toLabel(), nil
	}

	return c.createLabel(ctx, spec)
}

func (c *Client) createLabel(ctx context.Context, spec LabelSpec) (Label, error) {
	const query = `mutation($input: IssueLabelCreateInput!) {
  issueLabelCreate(input: $input) {
    success
    issueLabel { id name color description }
  }
}`
	input := map[string]any{
		"name":  spec.Name,
		"color": spec.Color,
	}
	if spec.Description != "" {
		input["description"] = spec.Description
	}

	data, err := c.execute(ctx, query, map[string]any{"input": input})
	if err != nil {
		return Label{}, fmt.Errorf("creating label %q: %w", spec.Name, err)
	}

	var result struct {
		IssueLabelCreate struct {
			Success    bool      `json:"success"`
			IssueLabel labelNode `json:"issueLabel"`
		} `json:"issueLabelCreate"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return Label{}, fmt.Errorf("decoding label creation: %w", err)
	}
	if !result.IssueLabelCreate.Success {
		return Label{}, fmt.Errorf("linear reported label creation for %q as unsuccessful", spec.Name)
	}

	return result.IssueLabelCreate.IssueLabel.toLabel(), nil
}

type labelNode struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

func (n labelNode) toLabel() Label {
	return Label{
		ID:          n.ID,
		Name:        n.Name,
		Color:       n.Color,
		Description: n.Description,
	}
}
