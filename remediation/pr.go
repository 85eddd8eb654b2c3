/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

package remediation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
)

// timeNow is stubbed in tests to make branch suffixes deterministic.
var timeNow = time.Now

// OpenPR is the subset of an open pull request the duplicate guard inspects.
type OpenPR struct {
	Title   string
	HeadRef string
	URL     string
}

// FindExistingPR reports the first open pull request that already covers this
// fix: its title mentions the file path, or its head branch shares the fix
// branch's root token (the segment before the first hyphen). Matching is
// case-insensitive.
func FindExistingPR(prs []OpenPR, filePath, branchName string) *OpenPR {
	file := strings.ToLower(filePath)
	root := strings.ToLower(branchName)
	if i := strings.Index(root, "-"); i >= 0 {
		root = root[:i]
	}

	for i, pr := range prs {
		if strings.Contains(strings.ToLower(pr.Title), file) {
			return &prs[i]
		}
		if root != "" && strings.Contains(strings.ToLower(pr.HeadRef), root) {
			return &prs[i]
		}
	}
	return nil
}

func errorRecord(format string, args ...any) *PullRequestRecord {
	return &PullRequestRecord{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

// applyFix performs the full terminal action: duplicate guard, sandbox write,
// branch creation, commit, draft PR. It never returns an error; failures
// become an Error record so the caller can surface them as tool output.
func applyFix(ctx context.Context, cb Callbacks, args ApplyFixArgs) *PullRequestRecord {
	log := clog.FromContext(ctx).With("path", args.FilePath)

	prs, err := cb.ListOpenPRs(ctx)
	if err != nil {
		return errorRecord("listing open pull requests: %v", err)
	}
	if existing := FindExistingPR(prs, args.FilePath, args.BranchName); existing != nil {
		log.With("pr_url", existing.URL).Info("Open PR already covers this fix")
		return &PullRequestRecord{
			URL:     existing.URL,
			Status:  StatusAlreadyExists,
			Message: fmt.Sprintf("An open pull request already covers %s", args.FilePath),
		}
	}

	// Mirror the change into the sandbox clone so follow-up reads see it.
	if err := cb.WriteFile(ctx, args.FilePath, []byte(args.NewContent)); err != nil {
		return errorRecord("writing %s in sandbox: %v", args.FilePath, err)
	}

	base, err := cb.DefaultBranch(ctx)
	if err != nil {
		return errorRecord("resolving default branch: %v", err)
	}
	sha, err := cb.BranchHeadSHA(ctx, base)
	if err != nil {
		return errorRecord("resolving head of %s: %v", base, err)
	}

	branch := fmt.Sprintf("%s-%d", args.BranchName, timeNow().UnixMilli())
	if err := cb.CreateBranch(ctx, branch, sha); err != nil {
		return errorRecord("creating branch %s: %v", branch, err)
	}

	// A missing file means this commit creates it; lookup failures are
	// treated the same and resolved by the commit itself.
	fileSHA, _, err := cb.FileSHA(ctx, args.FilePath, base)
	if err != nil {
		log.With("error", err).Debug("Could not resolve existing file SHA; committing as a new file")
		fileSHA = ""
	}

	if err := cb.CommitFile(ctx, args.FilePath, branch, args.CommitMessage, fileSHA, []byte(args.NewContent)); err != nil {
		return errorRecord("committing %s to %s: %v", args.FilePath, branch, err)
	}

	url, err := cb.CreateDraftPR(ctx, args.PRTitle, args.PRBody, branch, base)
	if err != nil {
		return errorRecord("creating pull request from %s: %v", branch, err)
	}

	log.With("pr_url", url).With("branch", branch).Info("Opened draft pull request")
	return &PullRequestRecord{URL: url, Status: StatusSuccess}
}
