// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package prompts manages the system prompt registry. Defaults are
// compiled into the binary; a prompt directory can shadow them at
// runtime, with fsnotify keeping the shadow copies fresh, and the admin
// API can override individual prompts in memory.
package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/fsnotify/fsnotify"
)

//go:embed assets/*.txt
var defaultAssets embed.FS

// ErrUnknownPrompt is returned for keys the registry has never seen.
type ErrUnknownPrompt struct {
	Key string
}

func (e *ErrUnknownPrompt) Error() string {
	return fmt.Sprintf("prompts: unknown prompt %q", e.Key)
}

// Registry resolves prompt keys to template text and renders them.
// Resolution order: admin override, prompt directory file, embedded
// default. Keys are case-insensitive and ignore underscores, so the
// file rest_discovery.txt serves the key "RestDiscovery".
type Registry struct {
	mu        sync.RWMutex
	defaults  map[string]string
	fileCopy  map[string]string
	overrides map[string]string

	dir     string
	watcher *fsnotify.Watcher
	logger  *slog.Logger
}

// NewRegistry loads the embedded defaults and, when dir is non-empty,
// shadows them with any *.txt files found there. The directory is then
// watched; edits take effect without a restart.
func NewRegistry(dir string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		defaults:  make(map[string]string),
		fileCopy:  make(map[string]string),
		overrides: make(map[string]string),
		dir:       dir,
		logger:    logger,
	}

	if err := fs.WalkDir(defaultAssets, "assets", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, readErr := defaultAssets.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		r.defaults[NormalizeKey(filepath.Base(path))] = string(data)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("prompts: loading embedded defaults: %w", err)
	}

	if dir != "" {
		if err := r.loadDir(); err != nil {
			return nil, err
		}
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("prompts: creating watcher: %w", err)
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("prompts: watching %s: %w", dir, err)
		}
		r.watcher = watcher
		go r.watch()
	}

	return r, nil
}

// Close stops the directory watcher.
func (r *Registry) Close() error {
	if r.watcher != nil {
		return r.watcher.Close()
	}
	return nil
}

// NormalizeKey maps keys and filenames onto the registry's canonical
// form: lowercase with underscores and the .txt extension removed.
func NormalizeKey(key string) string {
	key = strings.TrimSuffix(key, ".txt")
	key = strings.ReplaceAll(key, "_", "")
	return strings.ToLower(key)
}

// Get returns the raw template text for key.
func (r *Registry) Get(key string) (string, error) {
	norm := NormalizeKey(key)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if text, ok := r.overrides[norm]; ok {
		return text, nil
	}
	if text, ok := r.fileCopy[norm]; ok {
		return text, nil
	}
	if text, ok := r.defaults[norm]; ok {
		return text, nil
	}
	return "", &ErrUnknownPrompt{Key: key}
}

// Render resolves key and executes it as a text/template with args.
// Prompts without template actions pass through unchanged.
func (r *Registry) Render(key string, args map[string]string) (string, error) {
	text, err := r.Get(key)
	if err != nil {
		return "", err
	}
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	tmpl, err := template.New(NormalizeKey(key)).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", fmt.Errorf("prompts: parsing %q: %w", key, err)
	}
	if args == nil {
		args = map[string]string{}
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, args); err != nil {
		return "", fmt.Errorf("prompts: rendering %q: %w", key, err)
	}
	return sb.String(), nil
}

// Override replaces the text served for an existing key until the next
// restart. Unknown keys are rejected so a typo cannot create a prompt
// no phase will ever read.
func (r *Registry) Override(key, text string) error {
	norm := NormalizeKey(key)
	r.mu.Lock()
	defer r.mu.Unlock()
	_, inFiles := r.fileCopy[norm]
	_, inDefaults := r.defaults[norm]
	if !inFiles && !inDefaults {
		return &ErrUnknownPrompt{Key: key}
	}
	r.overrides[norm] = text
	return nil
}

// Keys lists every known prompt key in canonical form.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	for k := range r.defaults {
		seen[k] = struct{}{}
	}
	for k := range r.fileCopy {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	return keys
}

func (r *Registry) loadDir() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("prompts: reading %s: %w", r.dir, err)
	}
	loaded := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("prompts: reading %s: %w", entry.Name(), err)
		}
		loaded[NormalizeKey(entry.Name())] = string(data)
	}
	r.mu.Lock()
	r.fileCopy = loaded
	r.mu.Unlock()
	return nil
}

// watch reloads the prompt directory on any write or remove. Reload
// failures keep the previous copies and log rather than crash.
func (r *Registry) watch() {
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := r.loadDir(); err != nil {
				r.logger.Error("prompt directory reload failed", "error", err)
				continue
			}
			r.logger.Info("prompt directory reloaded", "trigger", event.Name)
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error("prompt watcher error", "error", err)
		}
	}
}
