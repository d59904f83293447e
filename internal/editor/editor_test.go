package editor

import (
	"errors"
	"testing"

	"github.com/newthinker/risklab/internal/core"
	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, []string{"javascript", "python", "sql"}, cfg.Languages)
	assert.Equal(t, []string{"!gotoSymbol"}, cfg.Features)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_FeatureEnabled(t *testing.T) {
	cfg := Default()

	assert.False(t, cfg.FeatureEnabled("gotoSymbol"))
	assert.True(t, cfg.FeatureEnabled("folding"))

	reenabled := Config{Languages: []string{"sql"}, Features: []string{"!gotoSymbol", "gotoSymbol"}}
	assert.True(t, reenabled.FeatureEnabled("gotoSymbol"))
}

func TestConfig_LanguageEnabled(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.LanguageEnabled("python"))
	assert.False(t, cfg.LanguageEnabled("yaml"))
}

func TestConfig_DisabledFeatures(t *testing.T) {
	cfg := Config{Features: []string{"!gotoSymbol", "!folding", "!folding", "!hover", "hover"}}
	assert.Equal(t, []string{"gotoSymbol", "folding"}, cfg.DisabledFeatures())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr *core.Error
	}{
		{"no languages", Config{}, core.ErrConfigMissing},
		{"unknown language", Config{Languages: []string{"cobol"}}, core.ErrConfigInvalid},
		{"empty feature", Config{Languages: []string{"sql"}, Features: []string{"!"}}, core.ErrConfigInvalid},
		{"ok", Config{Languages: []string{"sql"}, Features: []string{"hover"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestConfig_WithOverrides(t *testing.T) {
	base := Default()

	same := base.WithOverrides(nil, nil)
	assert.Equal(t, base, same)

	over := base.WithOverrides([]string{"python"}, nil)
	assert.Equal(t, []string{"python"}, over.Languages)
	assert.Equal(t, base.Features, over.Features)

	over.Features[0] = "mutated"
	assert.Equal(t, "!gotoSymbol", base.Features[0], "overrides must not alias the base slices")
}
