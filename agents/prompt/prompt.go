/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

package prompt

import (
	"encoding/xml"
	"fmt"
	"maps"
	"regexp"
)

var placeholderPattern = regexp.MustCompile(`\{\{([a-zA-Z0-9_]+)\}\}`)

// stringLiteral only accepts literal strings at call sites.
type stringLiteral string

// Prompt is a template with bindable {{name}} placeholders.
type Prompt struct {
	template string
	bindings map[string]binding
}

type binding interface {
	value() (string, error)
}

type unbound struct{ name string }

func (u unbound) value() (string, error) {
	return "", fmt.Errorf("binding %q is unbound", u.name)
}

type literal struct{ val string }

func (l literal) value() (string, error) { return l.val, nil }

type xmlBinding struct{ data any }

func (x xmlBinding) value() (string, error) {
	out, err := xml.MarshalIndent(x.data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling XML binding: %w", err)
	}
	return string(out), nil
}

// NewPrompt creates a prompt from a template literal and collects its placeholders.
func NewPrompt(template stringLiteral) (*Prompt, error) {
	bindings := make(map[string]binding)
	for _, m := range placeholderPattern.FindAllStringSubmatch(string(template), -1) {
		name := m[1]
		if _, exists := bindings[name]; !exists {
			bindings[name] = unbound{name: name}
		}
	}
	return &Prompt{
		template: string(template),
		bindings: bindings,
	}, nil
}

// MustNewPrompt is NewPrompt that panics on error, for package-level prompt vars.
func MustNewPrompt(template stringLiteral) *Prompt {
	p, err := NewPrompt(template)
	if err != nil {
		panic(err)
	}
	return p
}

// Bindings returns the set of placeholder names found in the template.
func (p *Prompt) Bindings() map[string]struct{} {
	names := make(map[string]struct{}, len(p.bindings))
	for name := range p.bindings {
		names[name] = struct{}{}
	}
	return names
}

// BindStringLiteral binds a developer-supplied literal string to a placeholder.
// Returns a new Prompt with the binding applied.
func (p *Prompt) BindStringLiteral(name string, value stringLiteral) (*Prompt, error) {
	return p.bind(name, literal{val: string(value)})
}

// BindXML binds structured data to a placeholder by marshaling it as XML.
// This is the safe way to interpolate user-controlled input into a prompt.
func (p *Prompt) BindXML(name string, data any) (*Prompt, error) {
	return p.bind(name, xmlBinding{data: data})
}

func (p *Prompt) bind(name string, b binding) (*Prompt, error) {
	existing, ok := p.bindings[name]
	if !ok {
		return nil, fmt.Errorf("no binding named %q in template", name)
	}
	if _, isUnbound := existing.(unbound); !isUnbound {
		return nil, fmt.Errorf("binding %q is already bound", name)
	}
	next := &Prompt{
		template: p.template,
		bindings: maps.Clone(p.bindings),
	}
	next.bindings[name] = b
	return next, nil
}

// Build constructs the final prompt, failing if any placeholder is unbound.
func (p *Prompt) Build() (string, error) {
	values := make(map[string]string, len(p.bindings))
	for name, b := range p.bindings {
		val, err := b.value()
		if err != nil {
			return "", err
		}
		values[name] = val
	}

	return placeholderPattern.ReplaceAllStringFunc(p.template, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		return values[name]
	}), nil
}
