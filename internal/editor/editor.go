// Package editor describes the embedded code editor setup: which language
// workers are bundled and which editor features are switched off.
package editor

import (
	"fmt"
	"slices"
	"strings"

	"github.com/newthinker/risklab/internal/core"
)

// Supported lists the languages the editor can load workers for.
var Supported = []string{"javascript", "typescript", "python", "sql", "json", "yaml"}

// Config is the editor packaging configuration. A feature prefixed with "!"
// is disabled; any other entry enables it explicitly.
type Config struct {
	Languages []string `json:"languages"`
	Features  []string `json:"features"`
}

// Default returns the stock configuration: JavaScript, Python and SQL
// support with symbol navigation disabled.
func Default() Config {
	return Config{
		Languages: []string{"javascript", "python", "sql"},
		Features:  []string{"!gotoSymbol"},
	}
}

// WithOverrides returns c with non-empty overrides applied.
func (c Config) WithOverrides(languages, features []string) Config {
	out := Config{
		Languages: slices.Clone(c.Languages),
		Features:  slices.Clone(c.Features),
	}
	if len(languages) > 0 {
		out.Languages = slices.Clone(languages)
	}
	if len(features) > 0 {
		out.Features = slices.Clone(features)
	}
	return out
}

// Validate rejects unknown languages and malformed feature entries.
func (c Config) Validate() error {
	if len(c.Languages) == 0 {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("editor: at least one language required"))
	}
	for _, lang := range c.Languages {
		if !slices.Contains(Supported, lang) {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("editor: unsupported language %q", lang))
		}
	}
	for _, f := range c.Features {
		if strings.TrimSpace(strings.TrimPrefix(f, "!")) == "" {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("editor: empty feature name"))
		}
	}
	return nil
}

// LanguageEnabled reports whether a worker for lang is bundled.
func (c Config) LanguageEnabled(lang string) bool {
	return slices.Contains(c.Languages, lang)
}

// FeatureEnabled reports whether the named feature is on. Features are on
// unless listed with a "!" prefix; the last matching entry wins.
func (c Config) FeatureEnabled(name string) bool {
	enabled := true
	for _, f := range c.Features {
		switch f {
		case "!" + name:
			enabled = false
		case name:
			enabled = true
		}
	}
	return enabled
}

// DisabledFeatures returns the names of every feature switched off.
func (c Config) DisabledFeatures() []string {
	var out []string
	for _, f := range c.Features {
		if name, ok := strings.CutPrefix(f, "!"); ok && !c.FeatureEnabled(name) && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}
