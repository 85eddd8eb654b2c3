/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixInput struct {
	FilePath   string `json:"filePath" jsonschema:"required,description=Path of the file"`
	NewContent string `json:"newContent" jsonschema:"required"`
	DryRun     bool   `json:"dryRun,omitempty"`
}

func TestReflectType(t *testing.T) {
	s := ReflectType[fixInput]()
	require.NotNil(t, s)

	// Expanded inline schema, not a $ref.
	assert.Empty(t, s.Ref)
	assert.Equal(t, "object", s.Type)

	prop, ok := s.Properties.Get("filePath")
	require.True(t, ok)
	assert.Equal(t, "string", prop.Type)
	assert.Equal(t, "Path of the file", prop.Description)

	assert.Contains(t, s.Required, "filePath")
	assert.Contains(t, s.Required, "newContent")
	assert.NotContains(t, s.Required, "dryRun")
}
