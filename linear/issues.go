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

// UpdateIssueLabels adds and removes labels on an issue by identifier.
// Either slice may be empty.
func (c *Client) UpdateIssueLabels(ctx context.Context, issueID string, added, removed []string) error {
	const query = `mutation($issueID: String!, $added: [String!], $removed: [String!]) {
  issueUpdate(id: $issueID, input: { addedLabelIds: $added, removedLabelIds: $removed }) {
    success
    issue { id }
  }
}`
	vars := map[string]any{
		"issueID": issueID,
		"added":   added,
		"removed": removed,
	}
	data, err := c.execute(ctx, query, vars)
	if err != nil {
		return fmt.Errorf("updating issue labels: %w", err)
	}

	var result struct {
		IssueUpdate struct {
			Success bool `json:"success"`
		} `json:"issueUpdate"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("decoding issue update response: %w", err)
	}
	if !result.IssueUpdate.Success {
		return fmt.Errorf("linear reported issue update as unsuccessful")
	}
	return nil
}
