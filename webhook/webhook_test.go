/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v84/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zagent-dev/zagent/agent"
	"github.com/zagent-dev/zagent/linear"
	"github.com/zagent-dev/zagent/remediation"
	"github.com/zagent-dev/zagent/sandbox"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type labelUpdate struct {
	issueID string
	added   []string
	removed []string
}

type fakeTracker struct {
	repoURL     string
	repoFound   bool
	repoErr     error
	getLabelErr error

	labelCalls []string
	updates    []labelUpdate
	updateErr  error
}

func (f *fakeTracker) GetLabel(ctx context.Context, spec linear.LabelSpec) (linear.Label, error) {
	f.labelCalls = append(f.labelCalls, spec.Name)
	if f.getLabelErr != nil {
		return linear.Label{}, f.getLabelErr
	}
	return linear.Label{ID: "id-" + spec.Name, Name: spec.Name, Color: spec.Color}, nil
}

func (f *fakeTracker) UpdateIssueLabels(ctx context.Context, issueID string, added, removed []string) error {
	f.updates = append(f.updates, labelUpdate{issueID: issueID, added: added, removed: removed})
	return f.updateErr
}

func (f *fakeTracker) ProjectRepositoryURL(ctx context.Context, projectID, prefix string) (string, bool, error) {
	return f.repoURL, f.repoFound, f.repoErr
}

type fakeFixer struct {
	record *remediation.PullRequestRecord
	err    error

	calls int
	issue agent.IssueContext
}

func (f *fakeFixer) Run(ctx context.Context, issue agent.IssueContext, cb remediation.Callbacks) (*remediation.PullRequestRecord, error) {
	f.calls++
	f.issue = issue
	return f.record, f.err
}

// sandboxFake counts session lifecycle calls and records clone commands.
type sandboxFake struct {
	t *testing.T

	created       int
	destroyed     int
	cloneExitCode int
	commands      []string
}

func (f *sandboxFake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/sessions":
		f.created++
		_ = json.NewEncoder(w).Encode(map[string]any{"sessionID": "sess-1"})
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/sessions/"):
		f.destroyed++
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/commands"):
		var body map[string]any
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		f.commands = append(f.commands, body["command"].(string))
		_ = json.NewEncoder(w).Encode(sandbox.CommandResult{ExitCode: f.cloneExitCode})
	default:
		f.t.Errorf("unexpected sandbox request: %s %s", r.Method, r.URL.Path)
		http.Error(w, "unexpected", http.StatusTeapot)
	}
}

type fixture struct {
	tracker *fakeTracker
	fixer   *fakeFixer
	sbx     *sandboxFake
	router  *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	tracker := &fakeTracker{
		repoURL:   "https://github.com/acme/widgets",
		repoFound: true,
	}
	fixer := &fakeFixer{
		record: &remediation.PullRequestRecord{
			URL:    "https://github.com/acme/widgets/pull/9",
			Status: remediation.StatusSuccess,
		},
	}
	sbx := &sandboxFake{t: t}
	srv := httptest.NewServer(sbx)
	t.Cleanup(srv.Close)

	handler := New(tracker,
		sandbox.NewClient("sbx-key", sandbox.WithEndpoint(srv.URL)),
		github.NewClient(nil),
		fixer,
		"ghp_token")

	router := gin.New()
	handler.Register(router)

	return &fixture{tracker: tracker, fixer: fixer, sbx: sbx, router: router}
}

func issuePayload(labelNames ...string) []byte {
	labels := make([]map[string]any, 0, len(labelNames))
	ids := make([]string, 0, len(labelNames))
	for i, n := range labelNames {
		id := fmt.Sprintf("evt-lbl-%d", i)
		labels = append(labels, map[string]any{"id": id, "name": n})
		ids = append(ids, id)
	}
	payload, _ := json.Marshal(map[string]any{
		"action": "update",
		"type":   "Issue",
		"data": map[string]any{
			"id":          "issue-1",
			"title":       "Crash on empty config",
			"description": "Panics when config file is empty.",
			"projectId":   "proj-1",
			"labels":      labels,
			"labelIds":    ids,
		},
	})
	return payload
}

func (f *fixture) post(t *testing.T, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message": "Webhook is running"}`, w.Body.String())
}

func TestMalformedPayload(t *testing.T) {
	f := newFixture(t)
	w := f.post(t, []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, f.sbx.created)
}

func TestIgnoresNonIssueEvents(t *testing.T) {
	f := newFixture(t)
	payload, _ := json.Marshal(map[string]any{
		"action": "create",
		"type":   "Comment",
		"data":   map[string]any{"id": "c-1", "body": "looks good"},
	})

	w := f.post(t, payload)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message": "Ignoring non-issue event"}`, w.Body.String())
	assert.Empty(t, f.tracker.labelCalls)
	assert.Empty(t, f.tracker.updates)
	assert.Zero(t, f.sbx.created)
	assert.Zero(t, f.fixer.calls)
}

func TestSkipsWithoutCandidateLabel(t *testing.T) {
	f := newFixture(t)
	w := f.post(t, issuePayload("bug"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message": "not an ai-candidate issue"}`, w.Body.String())
	assert.Empty(t, f.tracker.labelCalls)
	assert.Empty(t, f.tracker.updates)
	assert.Zero(t, f.sbx.created)
}

func TestSkipsWhenAlreadyInProgress(t *testing.T) {
	f := newFixture(t)
	w := f.post(t, issuePayload("ai-candidate", "ai-in-progress"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message": "issue already has a status label"}`, w.Body.String())
	assert.Empty(t, f.tracker.updates)
	assert.Zero(t, f.sbx.created)
}

func TestNoRepositoryLink(t *testing.T) {
	f := newFixture(t)
	f.tracker.repoFound = false

	w := f.post(t, issuePayload("ai-candidate"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No Repo URL")
	// No label was touched and no sandbox provisioned.
	assert.Empty(t, f.tracker.updates)
	assert.Zero(t, f.sbx.created)
	assert.Zero(t, f.fixer.calls)
}

func TestUnusableRepositoryLink(t *testing.T) {
	f := newFixture(t)
	f.tracker.repoURL = "https://github.com/acme"

	w := f.post(t, issuePayload("ai-candidate"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No Repo URL")
	assert.Empty(t, f.tracker.updates)
}

func TestRepositoryLookupFailure(t *testing.T) {
	f := newFixture(t)
	f.tracker.repoErr = errors.New("linear down")

	w := f.post(t, issuePayload("ai-candidate"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, f.tracker.updates)
	assert.Zero(t, f.sbx.created)
}

func TestLabelResolutionFailure(t *testing.T) {
	f := newFixture(t)
	f.tracker.getLabelErr = errors.New("label API down")

	w := f.post(t, issuePayload("ai-candidate"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, f.tracker.updates)
	assert.Zero(t, f.sbx.created)
}

func TestSuccessfulRun(t *testing.T) {
	f := newFixture(t)
	w := f.post(t, issuePayload("ai-candidate"))

	assert.Equal(t, http.StatusOK, w.Code)

	// Labels were resolved and the run was bracketed by in-progress.
	assert.Equal(t, []string{"ai-in-progress", "ai-failed", "ai-done"}, f.tracker.labelCalls)
	require.Len(t, f.tracker.updates, 2)
	assert.Equal(t, labelUpdate{
		issueID: "issue-1",
		added:   []string{"id-ai-in-progress"},
	}, f.tracker.updates[0])
	assert.Equal(t, labelUpdate{
		issueID: "issue-1",
		added:   []string{"id-ai-done"},
		removed: []string{"id-ai-in-progress"},
	}, f.tracker.updates[1])

	// Exactly one sandbox, created and destroyed, with the repo cloned.
	assert.Equal(t, 1, f.sbx.created)
	assert.Equal(t, 1, f.sbx.destroyed)
	require.Len(t, f.sbx.commands, 1)
	assert.Contains(t, f.sbx.commands[0], "git clone --depth 1")
	assert.Contains(t, f.sbx.commands[0], "x-access-token:ghp_token@github.com/acme/widgets")

	// The agent saw the issue fields.
	assert.Equal(t, 1, f.fixer.calls)
	assert.Equal(t, "Crash on empty config", f.fixer.issue.Title)
	assert.Equal(t, "Panics when config file is empty.", f.fixer.issue.Description)
}

func TestExistingPRCountsAsSuccess(t *testing.T) {
	f := newFixture(t)
	f.fixer.record = &remediation.PullRequestRecord{
		URL:    "https://github.com/acme/widgets/pull/3",
		Status: remediation.StatusAlreadyExists,
	}

	f.post(t, issuePayload("ai-candidate"))

	require.Len(t, f.tracker.updates, 2)
	assert.Equal(t, []string{"id-ai-done"}, f.tracker.updates[1].added)
}

func TestFailedRunMarksFailed(t *testing.T) {
	f := newFixture(t)
	f.fixer.record = nil
	f.fixer.err = errors.New("model exploded")

	w := f.post(t, issuePayload("ai-candidate"))
	assert.Equal(t, http.StatusOK, w.Code)

	require.Len(t, f.tracker.updates, 2)
	assert.Equal(t, labelUpdate{
		issueID: "issue-1",
		added:   []string{"id-ai-failed"},
		removed: []string{"id-ai-in-progress"},
	}, f.tracker.updates[1])
	assert.Equal(t, 1, f.sbx.destroyed)
}

func TestIncompleteRunOnlyClearsInProgress(t *testing.T) {
	f := newFixture(t)
	f.fixer.record = nil
	f.fixer.err = nil

	f.post(t, issuePayload("ai-candidate"))

	require.Len(t, f.tracker.updates, 2)
	assert.Equal(t, labelUpdate{
		issueID: "issue-1",
		removed: []string{"id-ai-in-progress"},
	}, f.tracker.updates[1])
}

func TestCloneFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	f.sbx.cloneExitCode = 128

	w := f.post(t, issuePayload("ai-candidate"))
	assert.Equal(t, http.StatusOK, w.Code)

	// The agent never ran, the issue is marked failed, the sandbox is gone.
	assert.Zero(t, f.fixer.calls)
	require.Len(t, f.tracker.updates, 2)
	assert.Equal(t, []string{"id-ai-failed"}, f.tracker.updates[1].added)
	assert.Equal(t, 1, f.sbx.destroyed)
}

func TestInProgressWriteFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.tracker.updateErr = errors.New("write denied")

	w := f.post(t, issuePayload("ai-candidate"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Zero(t, f.sbx.created)
	assert.Zero(t, f.fixer.calls)
}
