/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package webhook receives Linear issue events and drives the full
// remediation flow: guard on status labels, resolve the project's repository,
// provision a sandbox, clone, run the fixer agent, and record the outcome
// back onto the issue as labels.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v84/github"
	"github.com/google/uuid"

	"github.com/zagent-dev/zagent/agent"
	"github.com/zagent-dev/zagent/linear"
	"github.com/zagent-dev/zagent/remediation"
	"github.com/zagent-dev/zagent/sandbox"
	"github.com/zagent-dev/zagent/statusguard"
)

// repoPrefix selects which project external link counts as the repository.
const repoPrefix = "https://github.com/"

// destroyTimeout bounds sandbox teardown, which runs even when the request
// context is already canceled.
const destroyTimeout = 30 * time.Second

// IssueTracker is the slice of the Linear client the handler uses.
type IssueTracker interface {
	GetLabel(ctx context.Context, spec linear.LabelSpec) (linear.Label, error)
	UpdateIssueLabels(ctx context.Context, issueID string, added, removed []string) error
	ProjectRepositoryURL(ctx context.Context, projectID, prefix string) (string, bool, error)
}

// Handler serves the webhook endpoint.
type Handler struct {
	tracker     IssueTracker
	sandboxes   *sandbox.Client
	github      *github.Client
	fixer       agent.Interface
	githubToken string
}

// New creates a webhook handler.
func New(tracker IssueTracker, sandboxes *sandbox.Client, gh *github.Client, fixer agent.Interface, githubToken string) *Handler {
	return &Handler{
		tracker:     tracker,
		sandboxes:   sandboxes,
		github:      gh,
		fixer:       fixer,
		githubToken: githubToken,
	}
}

// Register mounts the webhook routes on the engine.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/webhook", h.health)
	r.POST("/webhook", h.handle)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Webhook is running"})
}

// handle processes one webhook delivery synchronously. Skips and handled
// failures respond 200 so the sender does not redeliver; only malformed
// payloads and tracker API failures surface as error statuses.
func (h *Handler) handle(c *gin.Context) {
	var payload linear.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	ctx := c.Request.Context()
	log := clog.FromContext(ctx).With("delivery", uuid.NewString())
	ctx = clog.WithLogger(ctx, log)

	event, ok := linear.ParseIssueEvent(payload.Data)
	if !ok {
		log.With("type", payload.Type).Info("Ignoring non-issue event")
		c.JSON(http.StatusOK, gin.H{"message": "Ignoring non-issue event"})
		return
	}
	log = log.With("issue", event.ID)
	ctx = clog.WithLogger(ctx, log)

	if d := statusguard.Decide(event, nil); !d.Run {
		log.With("reason", d.Reason).Info("Skipping issue")
		c.JSON(http.StatusOK, gin.H{"message": d.Reason})
		return
	}

	// Resolve the repository before taking any visible action on the issue.
	repoURL, found, err := h.tracker.ProjectRepositoryURL(ctx, event.ProjectID, repoPrefix)
	if err != nil {
		log.With("error", err).Error("Failed to resolve project repository")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolving repository"})
		return
	}
	if !found {
		log.Warn("Project has no repository link")
		c.JSON(http.StatusOK, gin.H{"error": "No Repo URL"})
		return
	}
	owner, repo, err := remediation.ParseRepoURL(repoURL)
	if err != nil {
		log.With("error", err).With("url", repoURL).Warn("Repository link is not usable")
		c.JSON(http.StatusOK, gin.H{"error": "No Repo URL"})
		return
	}

	labels, err := h.resolveStatusLabels(ctx)
	if err != nil {
		log.With("error", err).Error("Failed to resolve status labels")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolving labels"})
		return
	}

	// Second guard pass with resolved identifiers, in case the event carried
	// label IDs without names.
	blocked := []string{labels.inProgress.ID, labels.failed.ID, labels.done.ID}
	if d := statusguard.Decide(event, blocked); !d.Run {
		log.With("reason", d.Reason).Info("Skipping issue")
		c.JSON(http.StatusOK, gin.H{"message": d.Reason})
		return
	}

	// ai-in-progress doubles as the re-entrancy lock: it goes on before any
	// sandbox work, and a failure to set it aborts the run entirely.
	if err := h.tracker.UpdateIssueLabels(ctx, event.ID, []string{labels.inProgress.ID}, nil); err != nil {
		log.With("error", err).Error("Failed to mark issue in progress")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "updating labels"})
		return
	}

	record, runErr := h.runRemediation(ctx, agent.IssueContext{
		Title:       event.Title,
		Description: event.Description,
	}, owner, repo, repoURL)

	h.recordOutcome(ctx, event.ID, labels, record, runErr)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type statusLabels struct {
	inProgress linear.Label
	failed     linear.Label
	done       linear.Label
}

func (h *Handler) resolveStatusLabels(ctx context.Context) (statusLabels, error) {
	var labels statusLabels
	var err error
	if labels.inProgress, err = h.tracker.GetLabel(ctx, statusguard.InProgressSpec); err != nil {
		return labels, err
	}
	if labels.failed, err = h.tracker.GetLabel(ctx, statusguard.FailedSpec); err != nil {
		return labels, err
	}
	if labels.done, err = h.tracker.GetLabel(ctx, statusguard.DoneSpec); err != nil {
		return labels, err
	}
	return labels, nil
}

// runRemediation provisions the sandbox, clones the repository, and runs the
// fixer agent. The sandbox is destroyed on every path out of this function.
func (h *Handler) runRemediation(ctx context.Context, issue agent.IssueContext, owner, repo, repoURL string) (*remediation.PullRequestRecord, error) {
	session, err := h.sandboxes.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("provisioning sandbox: %w", err)
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), destroyTimeout)
		defer cancel()
		if derr := session.Destroy(dctx); derr != nil {
			clog.FromContext(ctx).With("error", derr).
				With("session", session.ID()).
				Error("Failed to destroy sandbox session")
		}
	}()

	if err := session.CloneRepo(ctx, repoURL, h.githubToken); err != nil {
		return nil, err
	}

	cb := remediation.NewCallbacks(h.github, session, owner, repo)
	return h.fixer.Run(ctx, issue, cb)
}

// recordOutcome translates the run result into label transitions. Label
// update failures here are logged, not retried; the issue may be left with a
// stale ai-in-progress label and a human has to intervene.
func (h *Handler) recordOutcome(ctx context.Context, issueID string, labels statusLabels, record *remediation.PullRequestRecord, runErr error) {
	log := clog.FromContext(ctx)

	switch {
	case runErr != nil:
		if errors.Is(runErr, context.Canceled) {
			log.Warn("Run canceled; leaving issue in progress")
			return
		}
		log.With("error", runErr).Error("Remediation run failed")
		h.updateLabels(ctx, issueID, []string{labels.failed.ID}, []string{labels.inProgress.ID})

	case record != nil && (record.Status == remediation.StatusSuccess || record.Status == remediation.StatusAlreadyExists):
		log.With("pr_url", record.URL).With("pr_status", record.Status).Info("Remediation run succeeded")
		h.updateLabels(ctx, issueID, []string{labels.done.ID}, []string{labels.inProgress.ID})

	default:
		log.Warn("Remediation run ended without a pull request")
		h.updateLabels(ctx, issueID, nil, []string{labels.inProgress.ID})
	}
}

func (h *Handler) updateLabels(ctx context.Context, issueID string, added, removed []string) {
	if err := h.tracker.UpdateIssueLabels(ctx, issueID, added, removed); err != nil {
		clog.FromContext(ctx).With("error", err).Error("Failed to update issue labels")
	}
}
