/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

package statusguard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zagent-dev/zagent/linear"
)

func labels(names ...string) []linear.EventLabel {
	out := make([]linear.EventLabel, 0, len(names))
	for i, n := range names {
		out = append(out, linear.EventLabel{ID: string(rune('a' + i)), Name: n})
	}
	return out
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		event      linear.IssueEvent
		blockedIDs []string
		wantRun    bool
	}{{
		name:    "candidate only",
		event:   linear.IssueEvent{Labels: labels("ai-candidate")},
		wantRun: true,
	}, {
		name:    "no labels",
		event:   linear.IssueEvent{},
		wantRun: false,
	}, {
		name:    "unrelated labels only",
		event:   linear.IssueEvent{Labels: labels("bug", "p1")},
		wantRun: false,
	}, {
		name:    "candidate with unrelated labels",
		event:   linear.IssueEvent{Labels: labels("ai-candidate", "bug", "p1")},
		wantRun: true,
	}, {
		name:    "candidate already in progress",
		event:   linear.IssueEvent{Labels: labels("ai-candidate", "ai-in-progress")},
		wantRun: false,
	}, {
		name:    "candidate already failed",
		event:   linear.IssueEvent{Labels: labels("ai-candidate", "ai-failed")},
		wantRun: false,
	}, {
		name:    "candidate already done",
		event:   linear.IssueEvent{Labels: labels("ai-candidate", "ai-done")},
		wantRun: false,
	}, {
		name:    "case-insensitive candidate",
		event:   linear.IssueEvent{Labels: labels("AI-Candidate")},
		wantRun: true,
	}, {
		name:    "case-insensitive status label",
		event:   linear.IssueEvent{Labels: labels("ai-candidate", "AI-In-Progress")},
		wantRun: false,
	}, {
		name: "blocked by resolved label ID",
		event: linear.IssueEvent{
			Labels:   labels("ai-candidate"),
			LabelIDs: []string{"lbl-progress"},
		},
		blockedIDs: []string{"lbl-progress", "lbl-failed", "lbl-done"},
		wantRun:    false,
	}, {
		name: "unrelated label IDs do not block",
		event: linear.IssueEvent{
			Labels:   labels("ai-candidate"),
			LabelIDs: []string{"lbl-bug"},
		},
		blockedIDs: []string{"lbl-progress", "lbl-failed", "lbl-done"},
		wantRun:    true,
	}, {
		name: "nil blocked IDs applies name rule alone",
		event: linear.IssueEvent{
			Labels:   labels("ai-candidate"),
			LabelIDs: []string{"lbl-progress"},
		},
		wantRun: true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.event, tt.blockedIDs)
			assert.Equal(t, tt.wantRun, got.Run)
			if !tt.wantRun {
				assert.NotEmpty(t, got.Reason)
			}
		})
	}
}

func TestManagedSpecs(t *testing.T) {
	for _, spec := range []linear.LabelSpec{InProgressSpec, FailedSpec, DoneSpec} {
		assert.NotEmpty(t, spec.Name)
		assert.Regexp(t, `^#[0-9a-f]{6}$`, spec.Color)
		assert.Contains(t, spec.Description, "Managed by Webhook")
	}
}
