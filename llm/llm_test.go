package llm_test

import (
	"testing"

	"docquery/config"
	"docquery/llm"
)

func TestNewClientOllama(t *testing.T) {
	cfg := config.Config{
		LLM:        config.LLMConfig{Provider: config.ProviderOllama, Model: "llama3"},
		OllamaHost: "http://localhost:11434",
	}

	client, err := llm.NewClient(cfg)
	if err != nil {
		t.Fatalf("expected client, got error: %v", err)
	}
	if client == nil {
		t.Fatal("expected non-nil client")
	}
	if _, ok := client.(llm.StreamClient); !ok {
		t.Fatal("expected the ollama client to support streaming")
	}
}

func TestNewClientOpenAIMissingKey(t *testing.T) {
	cfg := config.Config{
		LLM: config.LLMConfig{Provider: config.ProviderOpenAI, Model: "gpt-4o-mini"},
	}

	if _, err := llm.NewClient(cfg); err == nil {
		t.Fatal("expected error for missing OpenAI API key")
	}
}

func TestNewClientOpenAISupportsStreaming(t *testing.T) {
	cfg := config.Config{
		LLM:          config.LLMConfig{Provider: config.ProviderOpenAI, Model: "gpt-4o-mini"},
		OpenAIAPIKey: "test-key",
	}

	client, err := llm.NewClient(cfg)
	if err != nil {
		t.Fatalf("expected client, got error: %v", err)
	}
	if _, ok := client.(llm.StreamClient); !ok {
		t.Fatal("expected the openai client to support streaming")
	}
}

func TestNewClientUnknownProvider(t *testing.T) {
	cfg := config.Config{LLM: config.LLMConfig{Provider: "telegraph"}}

	if _, err := llm.NewClient(cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
