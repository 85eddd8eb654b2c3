/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package agent composes the conversation runner with the remediation tool
// set into the fixer agent: given an issue's title and description, explore
// the cloned repository and open a draft pull request with a fix.
package agent

import (
	"context"
	"encoding/xml"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/zagent-dev/zagent/agents/prompt"
	"github.com/zagent-dev/zagent/agents/runner"
	"github.com/zagent-dev/zagent/agents/toolcall"
	"github.com/zagent-dev/zagent/remediation"
)

var systemInstructions = prompt.MustNewPrompt(`You are an expert software engineer acting autonomously on a cloned repository.

You will be given a bug report or task. Work it end to end:
1. Use list_files to understand the repository layout.
2. Use read_file to inspect the files relevant to the report. Read before you write.
3. Decide on the smallest correct fix, confined to a single file.
4. Call apply_fix_and_create_pr exactly once with the complete new file content.

Rules:
- apply_fix_and_create_pr is your terminal action. Do not call it until you have read the file you are changing.
- If it reports status "Already Exists", the work is done. Stop.
- If it reports status "Error", read the message, adjust, and try again.
- Never invent file contents. newContent must be the full file, not a diff.`)

var userPrompt = prompt.MustNewPrompt(`Resolve the following issue by fixing the repository and opening a draft pull request.

{{issue}}`)

// IssueContext carries the issue fields the agent reasons over. It is bound
// into the prompt as XML so untrusted issue text cannot masquerade as
// instructions.
type IssueContext struct {
	XMLName     xml.Name `xml:"issue"`
	Title       string   `xml:"title"`
	Description string   `xml:"description"`
}

// Bind implements prompt.Bindable.
func (c IssueContext) Bind(p *prompt.Prompt) (*prompt.Prompt, error) {
	return p.BindXML("issue", c)
}

// Option configures the fixer agent's runner.
type Option = runner.Option[IssueContext, *remediation.PullRequestRecord]

// WithModel overrides the model the agent converses with.
func WithModel(model string) Option {
	return runner.WithModel[IssueContext, *remediation.PullRequestRecord](model)
}

// WithMaxRounds bounds the number of conversation rounds per run.
func WithMaxRounds(rounds int) Option {
	return runner.WithMaxRounds[IssueContext, *remediation.PullRequestRecord](rounds)
}

// Interface runs one remediation conversation.
type Interface interface {
	// Run executes the agent over the given issue with the given callbacks.
	// A nil record with a nil error is an incomplete run: the model stopped
	// without producing a pull request.
	Run(ctx context.Context, issue IssueContext, cb remediation.Callbacks) (*remediation.PullRequestRecord, error)
}

type fixer struct {
	runner   runner.Interface[IssueContext, *remediation.PullRequestRecord]
	provider remediation.Provider
}

// New creates the fixer agent.
func New(client anthropic.Client, opts ...Option) (Interface, error) {
	opts = append([]Option{
		runner.WithSystemInstructions[IssueContext, *remediation.PullRequestRecord](systemInstructions),
	}, opts...)

	r, err := runner.New(client, userPrompt, opts...)
	if err != nil {
		return nil, err
	}
	return &fixer{runner: r, provider: remediation.NewProvider()}, nil
}

// Run implements Interface.
func (f *fixer) Run(ctx context.Context, issue IssueContext, cb remediation.Callbacks) (*remediation.PullRequestRecord, error) {
	return f.runner.Execute(ctx, issue, f.tools(cb))
}

func (f *fixer) tools(cb remediation.Callbacks) map[string]toolcall.Tool[*remediation.PullRequestRecord] {
	return f.provider.Tools(cb)
}
