/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

package linear

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ProjectRepositoryURL returns the first external link on the project whose
// URL begins with the given prefix (e.g. "https://github.com/"). The second
// return is false when the project has no matching link.
func (c *Client) ProjectRepositoryURL(ctx context.Context, projectID, prefix string) (string, bool, error) {
	const query = `query($projectID: String!) {
  project(id: $projectID) {
    externalLinks {
      nodes { url label }
    }
  }
}`
	data, err := c.execute(ctx, query, map[string]any{"projectID": projectID})
	if err != nil {
		return "", false, fmt.Errorf("fetching project links: %w", err)
	}

	var result struct {
		Project struct {
			ExternalLinks struct {
				Nodes []struct {
					URL   string `json:"url"`
					Label string `json:"label"`
				} `json:"nodes"`
			} `json:"externalLinks"`
		} `json:"project"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", false, fmt.Errorf("decoding project links: %w", err)
	}

	for _, link := range result.Project.ExternalLinks.Nodes {
		if strings.HasPrefix(link.URL, prefix) {
			return link.URL, true, nil
		}
	}
	return "", false, nil
}
