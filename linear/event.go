/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

package linear

import "encoding/json"

// WebhookPayload is the envelope Linear posts to webhook endpoints.
type WebhookPayload struct {
	Action string          `json:"action,omitempty"`
	Type   string          `json:"type,omitempty"`
	Data   json.RawMessage `json:"data"`
}

// IssueEvent is the issue-shaped webhook body. Events for other entity types
// (comments, projects, reactions) do not carry these fields and are reported
// as unrecognized by ParseIssueEvent.
type IssueEvent struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	ProjectID   string       `json:"projectId"`
	Labels      []EventLabel `json:"labels"`
	LabelIDs    []string     `json:"labelIds"`
}

// EventLabel is a label as embedded in a webhook event.
type EventLabel struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// ParseIssueEvent decodes a webhook data payload into an IssueEvent.
// The second return is false when the payload is not issue-shaped: an issue
// event always carries title and description fields, even when empty.
func ParseIssueEvent(data json.RawMessage) (IssueEvent, bool) {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil {
		return IssueEvent{}, false
	}
	if _, ok := shape["title"]; !ok {
		return IssueEvent{}, false
	}
	if _, ok := shape["description"]; !ok {
		return IssueEvent{}, false
	}

	var event IssueEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return IssueEvent{}, false
	}
	return event, true
}
