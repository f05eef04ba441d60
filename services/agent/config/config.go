// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the agent service configuration. Values come
// from a YAML file when one exists, with environment variables
// overriding individual fields. Secrets (the LLM API key) are
// environment-only.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Chat modes selecting the stream wire format.
const (
	ChatModeLocal   = "local"
	ChatModeCopilot = "copilot"
)

// Config is the root service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Chat     ChatConfig     `yaml:"chat"`
	LLM      LLMConfig      `yaml:"llm"`
	Prompts  PromptsConfig  `yaml:"prompts"`
	Tools    ToolsConfig    `yaml:"tools"`
	Features FeaturesConfig `yaml:"features"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port string `yaml:"port" validate:"required"`
}

// ChatConfig selects the stream format and the fallback identity for
// unauthenticated local development.
type ChatConfig struct {
	Mode          string `yaml:"mode" validate:"oneof=local copilot"`
	DefaultUser   string `yaml:"default_user" validate:"required"`
	AllowedOrigin string `yaml:"allowed_origin"`
}

// LLMConfig points the completion agent at an OpenAI-compatible
// backend. APIKey is only settable via OPENAI_API_KEY.
type LLMConfig struct {
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model" validate:"required"`
	APIKey            string  `yaml:"-"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
}

// PromptsConfig locates the optional prompt override directory.
type PromptsConfig struct {
	Dir string `yaml:"dir"`
}

// ToolsConfig tunes the tool-side HTTP clients.
type ToolsConfig struct {
	GithubRawBaseURL      string `yaml:"github_raw_base_url"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds" validate:"gte=0"`
}

// FeaturesConfig gates optional surfaces.
type FeaturesConfig struct {
	AllowPromptOverride bool `yaml:"allow_prompt_override"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the configuration used when no file and no env
// overrides are present.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: "5049"},
		Chat: ChatConfig{
			Mode:        ChatModeLocal,
			DefaultUser: "local-user",
		},
		LLM: LLMConfig{
			Model:             "gpt-4o",
			RequestsPerSecond: 2,
		},
		Tools: ToolsConfig{
			RequestTimeoutSeconds: 30,
		},
	}
}

// Load builds the configuration from path (ignored when the file does
// not exist), applies environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Defaults plus env only.
		default:
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := validate.Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "ARGUS_PORT")
	setString(&cfg.Chat.Mode, "ARGUS_CHAT_MODE")
	setString(&cfg.Chat.DefaultUser, "ARGUS_DEFAULT_USER")
	setString(&cfg.Chat.AllowedOrigin, "ARGUS_ALLOWED_ORIGIN")
	setString(&cfg.LLM.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.LLM.Model, "OPENAI_MODEL")
	setString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	setString(&cfg.Prompts.Dir, "ARGUS_PROMPTS_DIR")
	setString(&cfg.Tools.GithubRawBaseURL, "ARGUS_GITHUB_RAW_BASE_URL")

	if v := os.Getenv("ARGUS_LLM_REQUESTS_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LLM.RequestsPerSecond = f
		}
	}
	if v := os.Getenv("ARGUS_TOOL_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Tools.RequestTimeoutSeconds = n
		}
	}
	if v := os.Getenv("ARGUS_ALLOW_PROMPT_OVERRIDE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Features.AllowPromptOverride = b
		}
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
