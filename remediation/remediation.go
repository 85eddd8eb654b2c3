/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package remediation defines the tools the agent can invoke against the
// cloned repository and the git hosting API: listing files, reading files,
// and applying a fix as a draft pull request.
package remediation

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"

	"github.com/zagent-dev/zagent/agents/schema"
	"github.com/zagent-dev/zagent/agents/toolcall"
	"github.com/zagent-dev/zagent/sandbox"
)

// Pull request record statuses.
const (
	StatusSuccess       = "Success"
	StatusAlreadyExists = "Already Exists"
	StatusError         = "Error"
)

// PullRequestRecord is the terminal artifact of a run: the pull request URL
// and how it came to be (created, already open, or failed).
type PullRequestRecord struct {
	URL     string `json:"prUrl,omitempty"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// listFilesCommand matches the bounded listing the agent expects: regular
// files up to three levels deep, hidden entries excluded.
const listFilesCommand = `find . -maxdepth 3 -type f -not -path '*/.*'`

// ApplyFixArgs is the input schema for the apply_fix_and_create_pr tool.
type ApplyFixArgs struct {
	FilePath      string `json:"filePath" jsonschema:"required,description=Path of the file to fix relative to the repository root"`
	NewContent    string `json:"newContent" jsonschema:"required,description=The complete new content of the file"`
	CommitMessage string `json:"commitMessage" jsonschema:"required,description=Commit message for the fix"`
	BranchName    string `json:"branchName" jsonschema:"required,description=Base name for the fix branch; a unique suffix is appended"`
	PRTitle       string `json:"prTitle" jsonschema:"required,description=Title for the pull request"`
	PRBody        string `json:"prBody" jsonschema:"required,description=Body for the pull request"`
}

// Provider builds the remediation tool set over a Callbacks value.
type Provider struct{}

// NewProvider creates a tool provider.
func NewProvider() Provider {
	return Provider{}
}

// Tools returns the remediation tools bound to the given callbacks.
func (Provider) Tools(cb Callbacks) map[string]toolcall.Tool[*PullRequestRecord] {
	return map[string]toolcall.Tool[*PullRequestRecord]{
		"list_files":              listFilesTool(cb),
		"read_file":               readFileTool(cb),
		"apply_fix_and_create_pr": applyFixTool(cb),
	}
}

func listFilesTool(cb Callbacks) toolcall.Tool[*PullRequestRecord] {
	return toolcall.Tool[*PullRequestRecord]{
		Def: toolcall.Definition{
			Name:        "list_files",
			Description: "List the repository's files (three levels deep, hidden entries excluded).",
		},
		Handler: func(ctx context.Context, _ toolcall.ToolCall, _ **PullRequestRecord) map[string]any {
			result, err := cb.RunCommand(ctx, listFilesCommand, sandbox.RepoWorkdir)
			if err != nil {
				clog.FromContext(ctx).With("error", err).Error("Failed to list files")
				return map[string]any{"error": fmt.Sprintf("listing files: %v", err)}
			}
			return map[string]any{"files": result}
		},
	}
}

func readFileTool(cb Callbacks) toolcall.Tool[*PullRequestRecord] {
	return toolcall.Tool[*PullRequestRecord]{
		Def: toolcall.Definition{
			Name:        "read_file",
			Description: "Read a file from the cloned repository. Reports a not-found result rather than failing.",
			Parameters: []toolcall.Parameter{
				{Name: "path", Type: "string", Description: "Path relative to the repository root", Required: true},
			},
		},
		Handler: func(ctx context.Context, call toolcall.ToolCall, _ **PullRequestRecord) map[string]any {
			path, errResp := toolcall.Param[string](call, "path")
			if errResp != nil {
				return errResp
			}

			content, err := cb.ReadFile(ctx, path)
			if errors.Is(err, sandbox.ErrNotFound) {
				return map[string]any{"error": fmt.Sprintf("File not found at %s", path)}
			}
			if err != nil {
				clog.FromContext(ctx).With("error", err).With("path", path).Error("Failed to read file")
				return map[string]any{"error": fmt.Sprintf("reading %s: %v", path, err)}
			}
			return map[string]any{"content": string(content)}
		},
	}
}

func applyFixTool(cb Callbacks) toolcall.Tool[*PullRequestRecord] {
	return toolcall.Tool[*PullRequestRecord]{
		Def: toolcall.Definition{
			Name: "apply_fix_and_create_pr",
			Description: "Apply a fix to a single file and open a draft pull request. " +
				"Aborts with status \"Already Exists\" when an open PR already covers this file or branch.",
			InputSchema: schema.ReflectType[ApplyFixArgs](),
		},
		Handler: func(ctx context.Context, call toolcall.ToolCall, result **PullRequestRecord) map[string]any {
			args, errResp := extractApplyFixArgs(call)
			if errResp != nil {
				return errResp
			}

			record := applyFix(ctx, cb, args)

			// A created or already-open PR is the run's terminal artifact.
			// Errors stay as data so the model can adjust and retry.
			if record.Status != StatusError {
				*result = record
			}

			return map[string]any{
				"prUrl":   record.URL,
				"status":  record.Status,
				"message": record.Message,
			}
		},
	}
}

func extractApplyFixArgs(call toolcall.ToolCall) (ApplyFixArgs, map[string]any) {
	var args ApplyFixArgs
	var errResp map[string]any

	if args.FilePath, errResp = toolcall.Param[string](call, "filePath"); errResp != nil {
		return args, errResp
	}
	if args.NewContent, errResp = toolcall.Param[string](call, "newContent"); errResp != nil {
		return args, errResp
	}
	if args.CommitMessage, errResp = toolcall.Param[string](call, "commitMessage"); errResp != nil {
		return args, errResp
	}
	if args.BranchName, errResp = toolcall.Param[string](call, "branchName"); errResp != nil {
		return args, errResp
	}
	if args.PRTitle, errResp = toolcall.Param[string](call, "prTitle"); errResp != nil {
		return args, errResp
	}
	if args.PRBody, errResp = toolcall.Param[string](call, "prBody"); errResp != nil {
		return args, errResp
	}
	return args, nil
}
