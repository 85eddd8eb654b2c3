/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

package remediation

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zagent-dev/zagent/agents/toolcall"
	"github.com/zagent-dev/zagent/sandbox"
)

func TestToolSet(t *testing.T) {
	tools := NewProvider().Tools(Callbacks{})
	assert.Len(t, tools, 3)
	for _, name := range []string{"list_files", "read_file", "apply_fix_and_create_pr"} {
		tool, ok := tools[name]
		require.True(t, ok, name)
		assert.NotEmpty(t, tool.Def.Description)
	}
	// The terminal tool carries a reflected input schema.
	assert.NotNil(t, tools["apply_fix_and_create_pr"].Def.InputSchema)
}

func TestListFilesTool(t *testing.T) {
	var gotCommand, gotCwd string
	cb := Callbacks{
		RunCommand: func(ctx context.Context, command, cwd string) (string, error) {
			gotCommand, gotCwd = command, cwd
			return "./main.go\n./go.mod\n", nil
		},
	}

	var result *PullRequestRecord
	out := listFilesTool(cb).Handler(context.Background(), toolcall.ToolCall{Name: "list_files"}, &result)

	assert.Equal(t, "./main.go\n./go.mod\n", out["files"])
	assert.Equal(t, listFilesCommand, gotCommand)
	assert.Equal(t, sandbox.RepoWorkdir, gotCwd)
	assert.Nil(t, result)
}

func TestReadFileTool(t *testing.T) {
	cb := Callbacks{
		ReadFile: func(ctx context.Context, relPath string) ([]byte, error) {
			if relPath == "main.go" {
				return []byte("package main"), nil
			}
			return nil, fmt.Errorf("%w: %s", sandbox.ErrNotFound, relPath)
		},
	}
	tool := readFileTool(cb)

	var result *PullRequestRecord
	call := toolcall.ToolCall{Name: "read_file", Args: map[string]any{"path": "main.go"}}
	out := tool.Handler(context.Background(), call, &result)
	assert.Equal(t, "package main", out["content"])

	call = toolcall.ToolCall{Name: "read_file", Args: map[string]any{"path": "missing.go"}}
	out = tool.Handler(context.Background(), call, &result)
	assert.Equal(t, "File not found at missing.go", out["error"])

	// Missing parameter is reported, not fatal.
	out = tool.Handler(context.Background(), toolcall.ToolCall{Name: "read_file"}, &result)
	assert.Contains(t, out, "error")
}

func applyFixCall() toolcall.ToolCall {
	return toolcall.ToolCall{
		Name: "apply_fix_and_create_pr",
		Args: map[string]any{
			"filePath":      "main.go",
			"newContent":    "package main\n",
			"commitMessage": "Fix panic",
			"branchName":    "main-fix",
			"prTitle":       "Fix panic in main.go",
			"prBody":        "Details.",
		},
	}
}

func TestApplyFixToolSetsFinalResultOnSuccess(t *testing.T) {
	var ops []string
	tool := applyFixTool(recordingCallbacks(&ops))

	var result *PullRequestRecord
	out := tool.Handler(context.Background(), applyFixCall(), &result)

	assert.Equal(t, StatusSuccess, out["status"])
	require.NotNil(t, result)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "https://github.com/acme/widgets/pull/7", result.URL)
}

func TestApplyFixToolSetsFinalResultOnExistingPR(t *testing.T) {
	var ops []string
	cb := recordingCallbacks(&ops)
	cb.ListOpenPRs = func(ctx context.Context) ([]OpenPR, error) {
		return []OpenPR{{Title: "touches main.go", HeadRef: "other", URL: "https://github.com/acme/widgets/pull/3"}}, nil
	}

	var result *PullRequestRecord
	out := applyFixTool(cb).Handler(context.Background(), applyFixCall(), &result)

	assert.Equal(t, StatusAlreadyExists, out["status"])
	require.NotNil(t, result)
	assert.Equal(t, StatusAlreadyExists, result.Status)
}

func TestApplyFixToolLeavesResultUnsetOnError(t *testing.T) {
	var ops []string
	cb := recordingCallbacks(&ops)
	cb.CreateDraftPR = func(ctx context.Context, title, body, head, base string) (string, error) {
		return "", fmt.Errorf("boom")
	}

	var result *PullRequestRecord
	out := applyFixTool(cb).Handler(context.Background(), applyFixCall(), &result)

	assert.Equal(t, StatusError, out["status"])
	assert.Contains(t, out["message"], "creating pull request")
	assert.Nil(t, result)
}

func TestApplyFixToolRejectsMissingArgs(t *testing.T) {
	var ops []string
	tool := applyFixTool(recordingCallbacks(&ops))

	call := applyFixCall()
	delete(call.Args, "newContent")

	var result *PullRequestRecord
	out := tool.Handler(context.Background(), call, &result)
	assert.Contains(t, out, "error")
	assert.Nil(t, result)
	assert.Empty(t, ops)
}

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		url       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{url: "https://github.com/acme/widgets", wantOwner: "acme", wantRepo: "widgets"},
		{url: "https://github.com/acme/widgets.git", wantOwner: "acme", wantRepo: "widgets"},
		{url: "https://github.com/acme/widgets/", wantOwner: "acme", wantRepo: "widgets"},
		{url: "https://github.com/acme", wantErr: true},
		{url: "https://github.com/", wantErr: true},
		{url: "://not-a-url", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			owner, repo, err := ParseRepoURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner, owner)
			assert.Equal(t, tt.wantRepo, repo)
		})
	}
}
