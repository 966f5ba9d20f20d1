package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicProviderConstruction(t *testing.T) {
	core, err := newAnthropicProvider(ClientConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, anthropicDefaultModel, core.Model())

	core, err = newAnthropicProvider(ClientConfig{APIKey: "k", Model: "claude-3-opus"})
	require.NoError(t, err)
	assert.Equal(t, "claude-3-opus", core.Model())

	_, err = newAnthropicProvider(ClientConfig{APIKey: "k", BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestOpenAIProviderConstruction(t *testing.T) {
	core, err := newOpenAIProvider(ClientConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, openAIDefaultModel, core.Model())

	core, err = newOpenAIProvider(ClientConfig{APIKey: "k", Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", core.Model())

	_, err = newOpenAIProvider(ClientConfig{APIKey: "k", BaseURL: "://bad"})
	assert.Error(t, err)
}

func TestBuiltinProvidersRegistered(t *testing.T) {
	assert.Contains(t, providerFactories, "anthropic")
	assert.Contains(t, providerFactories, "openai")
}
