/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

package runner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zagent-dev/zagent/agents/prompt"
	"github.com/zagent-dev/zagent/retry"
)

// Option is a functional option for configuring the runner.
type Option[Request prompt.Bindable, Response any] func(*agentRunner[Request, Response]) error

// WithModel overrides the model name.
func WithModel[Request prompt.Bindable, Response any](model string) Option[Request, Response] {
	return func(r *agentRunner[Request, Response]) error {
		if !strings.HasPrefix(model, "claude-") {
			return fmt.Errorf("model %q does not appear to be a Claude model (expected claude-* format)", model)
		}
		r.modelName = model
		return nil
	}
}

// WithMaxTokens sets the maximum tokens for model responses.
func WithMaxTokens[Request prompt.Bindable, Response any](tokens int64) Option[Request, Response] {
	return func(r *agentRunner[Request, Response]) error {
		if tokens <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", tokens)
		}
		r.maxTokens = tokens
		return nil
	}
}

// WithTemperature sets the sampling temperature. Lower values produce more
// deterministic output.
func WithTemperature[Request prompt.Bindable, Response any](temp float64) Option[Request, Response] {
	return func(r *agentRunner[Request, Response]) error {
		if temp < 0.0 || temp > 1.0 {
			return fmt.Errorf("temperature must be between 0.0 and 1.0, got %f", temp)
		}
		r.temperature = temp
		return nil
	}
}

// WithSystemInstructions sets the system prompt defining the agent's role.
func WithSystemInstructions[Request prompt.Bindable, Response any](p *prompt.Prompt) Option[Request, Response] {
	return func(r *agentRunner[Request, Response]) error {
		if p == nil {
			return errors.New("system instructions prompt cannot be nil")
		}
		r.systemInstructions = p
		return nil
	}
}

// WithMaxRounds bounds the number of propose/execute rounds per run.
// Exceeding the cap fails the run with ErrRoundLimit.
func WithMaxRounds[Request prompt.Bindable, Response any](rounds int) Option[Request, Response] {
	return func(r *agentRunner[Request, Response]) error {
		if rounds <= 0 {
			return fmt.Errorf("max rounds must be positive, got %d", rounds)
		}
		r.maxRounds = rounds
		return nil
	}
}

// WithRetryConfig sets the retry configuration for transient model API errors.
func WithRetryConfig[Request prompt.Bindable, Response any](cfg retry.Config) Option[Request, Response] {
	return func(r *agentRunner[Request, Response]) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		r.retryConfig = cfg
		return nil
	}
}
