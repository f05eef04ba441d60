// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package prompts

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "domainselection", NormalizeKey("DomainSelection"))
	assert.Equal(t, "restdiscovery", NormalizeKey("rest_discovery.txt"))
	assert.Equal(t, "sessioncontext", NormalizeKey("Session_Context"))
}

func TestRegistry_EmbeddedDefaults(t *testing.T) {
	r, err := NewRegistry("", nil)
	require.NoError(t, err)
	defer r.Close()

	for _, key := range []string{
		"DomainSelection",
		"RestDiscovery",
		"SwaggerDefinition",
		"CommandSelect",
		"ExecutionPlanSelect",
		"CommandInvoke",
		"SessionContext",
	} {
		text, err := r.Get(key)
		require.NoError(t, err, key)
		assert.NotEmpty(t, text, key)
	}

	assert.Len(t, r.Keys(), 7)
}

func TestRegistry_UnknownKey(t *testing.T) {
	r, err := NewRegistry("", nil)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Get("NoSuchPrompt")
	require.Error(t, err)
	var unknown *ErrUnknownPrompt
	assert.True(t, errors.As(err, &unknown))
}

func TestRegistry_RenderSubstitutesArgs(t *testing.T) {
	r, err := NewRegistry("", nil)
	require.NoError(t, err)
	defer r.Close()

	out, err := r.Render("SessionContext", map[string]string{
		"SelectedDomain":        "https://api.example.com",
		"DetectedRestOperations": "none",
		"SelectedCommand":        "none",
		"SelectedCommandResult":  "none",
		"CorrectedUserMessage":   "none",
		"DetectedSwaggerRoutes":  "none",
	})

	require.NoError(t, err)
	assert.Contains(t, out, "https://api.example.com")
	assert.NotContains(t, out, "{{")
}

func TestRegistry_RenderWithoutActionsPassesThrough(t *testing.T) {
	r, err := NewRegistry("", nil)
	require.NoError(t, err)
	defer r.Close()

	raw, err := r.Get("DomainSelection")
	require.NoError(t, err)
	rendered, err := r.Render("DomainSelection", nil)
	require.NoError(t, err)
	assert.Equal(t, raw, rendered)
}

func TestRegistry_DirectoryShadowsDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "domain_selection.txt"),
		[]byte("shadowed prompt"), 0o644))

	r, err := NewRegistry(dir, nil)
	require.NoError(t, err)
	defer r.Close()

	text, err := r.Get("DomainSelection")
	require.NoError(t, err)
	assert.Equal(t, "shadowed prompt", text)

	// Other prompts still come from the embedded defaults.
	text, err = r.Get("CommandInvoke")
	require.NoError(t, err)
	assert.NotEqual(t, "shadowed prompt", text)
}

func TestRegistry_OverrideWinsOverEverything(t *testing.T) {
	r, err := NewRegistry("", nil)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Override("DomainSelection", "override text"))

	text, err := r.Get("domain_selection")
	require.NoError(t, err)
	assert.Equal(t, "override text", text)
}

func TestRegistry_OverrideUnknownKeyRejected(t *testing.T) {
	r, err := NewRegistry("", nil)
	require.NoError(t, err)
	defer r.Close()

	err = r.Override("NoSuchPrompt", "text")
	require.Error(t, err)
	var unknown *ErrUnknownPrompt
	assert.True(t, errors.As(err, &unknown))
}
