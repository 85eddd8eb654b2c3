/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

package prompt

// Bindable is a request type that knows how to bind its values into a Prompt.
// The runner calls Bind before building the user prompt for a conversation.
type Bindable interface {
	Bind(p *Prompt) (*Prompt, error)
}

// Noop passes the prompt through unchanged.
type Noop struct{}

// Bind implements Bindable.
func (Noop) Bind(p *Prompt) (*Prompt, error) {
	return p, nil
}
