/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package main runs the webhook service: a Linear webhook endpoint that
// dispatches ai-candidate issues to a sandboxed fixer agent which opens
// draft pull requests.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/chainguard-dev/clog"
	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v84/github"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sethvargo/go-envconfig"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"golang.org/x/oauth2"

	"github.com/zagent-dev/zagent/agent"
	"github.com/zagent-dev/zagent/linear"
	"github.com/zagent-dev/zagent/sandbox"
	"github.com/zagent-dev/zagent/webhook"
)

type config struct {
	Port        int `env:"PORT,default=8080"`
	MetricsPort int `env:"METRICS_PORT,default=2112"`

	LinearAPIKey    string `env:"LINEAR_API_KEY,required"`
	GitHubToken     string `env:"GITHUB_TOKEN,required"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY,required"`
	SandboxAPIKey   string `env:"E2B_API_KEY,required"`

	SandboxTemplate string `env:"SANDBOX_TEMPLATE,default=base"`
	Model           string `env:"MODEL,default=claude-sonnet-4-5"`
	MaxRounds       int    `env:"MAX_ROUNDS,default=24"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		clog.FatalContextf(ctx, "Failed to process environment: %v", err)
	}

	shutdownMetrics, err := setupMetrics(ctx, cfg.MetricsPort)
	if err != nil {
		clog.FatalContextf(ctx, "Failed to set up metrics: %v", err)
	}
	defer shutdownMetrics()

	anthropicClient := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))

	ghClient := github.NewClient(oauth2.NewClient(ctx, oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.GitHubToken},
	)))

	linearClient := linear.New(cfg.LinearAPIKey)

	sandboxClient := sandbox.NewClient(cfg.SandboxAPIKey,
		sandbox.WithTemplate(cfg.SandboxTemplate))

	fixer, err := agent.New(anthropicClient,
		agent.WithModel(cfg.Model),
		agent.WithMaxRounds(cfg.MaxRounds))
	if err != nil {
		clog.FatalContextf(ctx, "Failed to create agent: %v", err)
	}

	handler := webhook.New(linearClient, sandboxClient, ghClient, fixer, cfg.GitHubToken)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler.Register(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		clog.InfoContextf(ctx, "Webhook listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			clog.FatalContextf(ctx, "Webhook server failed: %v", err)
		}
	}()

	<-ctx.Done()
	clog.InfoContext(ctx, "Shutting down")

	sctx, scancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		clog.ErrorContextf(ctx, "Webhook server shutdown: %v", err)
	}
}

// setupMetrics exports the OpenTelemetry meters through Prometheus and serves
// them on a separate port.
func setupMetrics(ctx context.Context, port int) (func(), error) {
	exporter, err := promexporter.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			clog.ErrorContextf(ctx, "Metrics server failed: %v", err)
		}
	}()

	return func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			clog.ErrorContextf(ctx, "Metrics server shutdown: %v", err)
		}
		if err := provider.Shutdown(sctx); err != nil {
			clog.ErrorContextf(ctx, "Meter provider shutdown: %v", err)
		}
	}, nil
}
