/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package result extracts structured JSON from model text responses.
package result

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls JSON content out of a text response that may wrap it in
// markdown code fences. When no fences are found the trimmed input is returned.
func ExtractJSON(responseText string) string {
	lines := strings.Split(responseText, "\n")
	var buf strings.Builder
	inBlock := false
	found := false

	for _, line := range lines {
		if !inBlock && line == "```json" {
			inBlock = true
			found = true
			continue
		}
		if inBlock && line == "```" {
			break
		}
		if inBlock {
			if buf.Len() > 0 {
				buf.WriteString("\n")
			}
			buf.WriteString(line)
		}
	}

	if found {
		return strings.TrimSpace(buf.String())
	}

	// No fenced block on its own line; strip inline fences if present.
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	return strings.TrimSpace(responseText)
}

// Extract unmarshals the JSON content of a text response into T.
func Extract[T any](responseText string) (T, error) {
	var result T
	if err := json.Unmarshal([]byte(ExtractJSON(responseText)), &result); err != nil {
		return result, err
	}
	return result, nil
}
