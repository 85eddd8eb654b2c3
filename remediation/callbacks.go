/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

package remediation

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/go-github/v84/github"

	"github.com/zagent-dev/zagent/sandbox"
)

// Callbacks are the side effects the remediation tools perform, expressed as
// function fields so tests can substitute any of them independently.
type Callbacks struct {
	// Sandbox operations, rooted at the repository clone.
	RunCommand func(ctx context.Context, command, cwd string) (string, error)
	ReadFile   func(ctx context.Context, relPath string) ([]byte, error)
	WriteFile  func(ctx context.Context, relPath string, content []byte) error

	// Git hosting operations against the target repository.
	ListOpenPRs   func(ctx context.Context) ([]OpenPR, error)
	DefaultBranch func(ctx context.Context) (string, error)
	BranchHeadSHA func(ctx context.Context, branch string) (string, error)
	CreateBranch  func(ctx context.Context, branch, sha string) error
	FileSHA       func(ctx context.Context, relPath, branch string) (string, bool, error)
	CommitFile    func(ctx context.Context, relPath, branch, message, sha string, content []byte) error
	CreateDraftPR func(ctx context.Context, title, body, head, base string) (string, error)
}

// NewCallbacks wires the callbacks to a live sandbox session and a GitHub
// client scoped to owner/repo.
func NewCallbacks(gh *github.Client, session *sandbox.Session, owner, repo string) Callbacks {
	return Callbacks{
		RunCommand: func(ctx context.Context, command, cwd string) (string, error) {
			result, err := session.Run(ctx, command, cwd)
			if err != nil {
				return "", err
			}
			if result.ExitCode != 0 {
				return "", fmt.Errorf("command exited with code %d: %s", result.ExitCode, result.Stderr)
			}
			return result.Stdout, nil
		},
		ReadFile: func(ctx context.Context, relPath string) ([]byte, error) {
			return session.ReadFile(ctx, path.Join(sandbox.RepoWorkdir, relPath))
		},
		WriteFile: func(ctx context.Context, relPath string, content []byte) error {
			return session.WriteFile(ctx, path.Join(sandbox.RepoWorkdir, relPath), content)
		},

		ListOpenPRs: func(ctx context.Context) ([]OpenPR, error) {
			prs, _, err := gh.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
				State:       "open",
				ListOptions: github.ListOptions{PerPage: 100},
			})
			if err != nil {
				return nil, err
			}
			open := make([]OpenPR, 0, len(prs))
			for _, pr := range prs {
				open = append(open, OpenPR{
					Title:   pr.GetTitle(),
					HeadRef: pr.GetHead().GetRef(),
					URL:     pr.GetHTMLURL(),
				})
			}
			return open, nil
		},
		DefaultBranch: func(ctx context.Context) (string, error) {
			r, _, err := gh.Repositories.Get(ctx, owner, repo)
			if err != nil {
				return "", err
			}
			return r.GetDefaultBranch(), nil
		},
		BranchHeadSHA: func(ctx context.Context, branch string) (string, error) {
			ref, _, err := gh.Git.GetRef(ctx, owner, repo, "refs/heads/"+branch)
			if err != nil {
				return "", err
			}
			return ref.GetObject().GetSHA(), nil
		},
		CreateBranch: func(ctx context.Context, branch, sha string) error {
			_, _, err := gh.Git.CreateRef(ctx, owner, repo, github.CreateRef{
				Ref: "refs/heads/" + branch,
				SHA: sha,
			})
			return err
		},
		FileSHA: func(ctx context.Context, relPath, branch string) (string, bool, error) {
			file, _, resp, err := gh.Repositories.GetContents(ctx, owner, repo, relPath,
				&github.RepositoryContentGetOptions{Ref: branch})
			if err != nil {
				if resp != nil && resp.StatusCode == 404 {
					return "", false, nil
				}
				return "", false, err
			}
			if file == nil {
				return "", false, fmt.Errorf("%s is not a regular file", relPath)
			}
			return file.GetSHA(), true, nil
		},
		CommitFile: func(ctx context.Context, relPath, branch, message, sha string, content []byte) error {
			opts := &github.RepositoryContentFileOptions{
				Message: github.Ptr(message),
				Content: content,
				Branch:  github.Ptr(branch),
			}
			if sha != "" {
				opts.SHA = github.Ptr(sha)
				_, _, err := gh.Repositories.UpdateFile(ctx, owner, repo, relPath, opts)
				return err
			}
			_, _, err := gh.Repositories.CreateFile(ctx, owner, repo, relPath, opts)
			return err
		},
		CreateDraftPR: func(ctx context.Context, title, body, head, base string) (string, error) {
			pr, _, err := gh.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
				Title: github.Ptr(title),
				Body:  github.Ptr(body),
				Head:  github.Ptr(head),
				Base:  github.Ptr(base),
				Draft: github.Ptr(true),
			})
			if err != nil {
				return "", err
			}
			return pr.GetHTMLURL(), nil
		},
	}
}

// ParseRepoURL extracts the owner and repository name from an HTTPS
// repository URL such as https://github.com/acme/widgets.
func ParseRepoURL(repoURL string) (owner, repo string, err error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", "", fmt.Errorf("parsing repository URL: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository URL %q does not name an owner and repository", repoURL)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}
