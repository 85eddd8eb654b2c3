/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package statusguard decides whether an incoming issue event should start an
// automation run, based on the issue's status labels. The status labels are
// the only cross-delivery state this system keeps: writing ai-in-progress
// early is the de-facto lock against re-entrant webhook deliveries.
package statusguard

import (
	"strings"

	"github.com/zagent-dev/zagent/linear"
)

// Well-known status label names.
const (
	CandidateLabel  = "ai-candidate"
	InProgressLabel = "ai-in-progress"
	FailedLabel     = "ai-failed"
	DoneLabel       = "ai-done"
)

// Specs for the labels this service manages. ai-candidate is applied by
// humans and has no managed spec.
var (
	InProgressSpec = linear.LabelSpec{
		Name:        InProgressLabel,
		Color:       "#4765d1",
		Description: "Managed by Webhook: Indicates the AI Agent is currently processing this task.",
	}
	FailedSpec = linear.LabelSpec{
		Name:        FailedLabel,
		Color:       "#d04a53",
		Description: "Managed by Webhook: Indicates the AI Agent failed to complete this task.",
	}
	DoneSpec = linear.LabelSpec{
		Name:        DoneLabel,
		Color:       "#00dcc9",
		Description: "Managed by Webhook: Indicates the AI Agent completed this task.",
	}
)

// Decision is the guard's verdict for one issue event.
type Decision struct {
	Run    bool
	Reason string
}

func skip(reason string) Decision {
	return Decision{Run: false, Reason: reason}
}

// Decide returns Run only when the issue carries ai-candidate and none of the
// active or terminal status labels, by name or by identifier. blockedIDs are
// the resolved identifiers of {ai-in-progress, ai-failed, ai-done}; pass nil
// before label resolution to apply the name-based rule alone.
func Decide(event linear.IssueEvent, blockedIDs []string) Decision {
	names := make(map[string]bool, len(event.Labels))
	for _, l := range event.Labels {
		names[strings.ToLower(l.Name)] = true
	}

	if !names[CandidateLabel] {
		return skip("not an ai-candidate issue")
	}
	if names[InProgressLabel] || names[FailedLabel] || names[DoneLabel] {
		return skip("issue already has a status label")
	}

	if len(blockedIDs) > 0 {
		blocked := make(map[string]bool, len(blockedIDs))
		for _, id := range blockedIDs {
			blocked[id] = true
		}
		for _, id := range event.LabelIDs {
			if blocked[id] {
				return skip("issue already has a status label")
			}
		}
	}

	return Decision{Run: true}
}
