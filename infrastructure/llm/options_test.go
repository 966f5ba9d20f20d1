package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptionsDefaults(t *testing.T) {
	opts, err := ParseOptions(nil, "base-model")
	require.NoError(t, err)
	assert.Equal(t, "base-model", opts.Model)
	assert.Equal(t, defaultMaxTokens, opts.MaxTokens)
	assert.Nil(t, opts.Temperature)
	assert.Empty(t, opts.System)
}

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		wantErr string
		check   func(t *testing.T, opts Options)
	}{
		{
			name: "model override",
			raw:  map[string]any{"model": "other"},
			check: func(t *testing.T, opts Options) {
				assert.Equal(t, "other", opts.Model)
			},
		},
		{
			name: "max_tokens from yaml int",
			raw:  map[string]any{"max_tokens": 256},
			check: func(t *testing.T, opts Options) {
				assert.Equal(t, 256, opts.MaxTokens)
			},
		},
		{
			name: "max_tokens from json float",
			raw:  map[string]any{"max_tokens": float64(512)},
			check: func(t *testing.T, opts Options) {
				assert.Equal(t, 512, opts.MaxTokens)
			},
		},
		{
			name: "temperature from int",
			raw:  map[string]any{"temperature": 1},
			check: func(t *testing.T, opts Options) {
				require.NotNil(t, opts.Temperature)
				assert.InDelta(t, 1.0, *opts.Temperature, 1e-9)
			},
		},
		{
			name:    "empty model rejected",
			raw:     map[string]any{"model": ""},
			wantErr: "non-empty string",
		},
		{
			name:    "fractional max_tokens rejected",
			raw:     map[string]any{"max_tokens": 1.5},
			wantErr: "positive integer",
		},
		{
			name:    "zero max_tokens rejected",
			raw:     map[string]any{"max_tokens": 0},
			wantErr: "positive integer",
		},
		{
			name:    "out-of-range temperature rejected",
			raw:     map[string]any{"temperature": 2.5},
			wantErr: "[0, 2]",
		},
		{
			name:    "unknown key rejected",
			raw:     map[string]any{"max_token": 10},
			wantErr: "unknown option",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseOptions(tt.raw, "base")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, opts)
		})
	}
}

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://api.example.com/v1", false},
		{"http://localhost:8080", false},
		{"ftp://example.com", true},
		{"not a url", true},
		{"https://", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := validateBaseURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWordEstimator(t *testing.T) {
	e := WordEstimator{}
	assert.Zero(t, e.EstimateTokens(""))
	assert.Equal(t, 3, e.EstimateTokens("hello you"))
	// Long unbroken strings fall back to the character floor.
	assert.Equal(t, 10, e.EstimateTokens("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
}
