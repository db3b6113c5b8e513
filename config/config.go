// Package config loads service configuration from an optional YAML file
// layered with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	BackendMemory   = "memory"
	BackendPgvector = "pgvector"
)

type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type IndexConfig struct {
	Backend     string `yaml:"backend"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type TelemetryConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Project   string `yaml:"project"`
	Neo4jURI  string `yaml:"neo4j_uri"`
	Neo4jUser string `yaml:"neo4j_user"`
	Neo4jPass string `yaml:"neo4j_pass"`
}

type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	Embeddings EmbeddingConfig `yaml:"embeddings"`
	LLM        LLMConfig       `yaml:"llm"`
	Index      IndexConfig     `yaml:"index"`
	Telemetry  TelemetryConfig `yaml:"telemetry"`

	OllamaHost    string `yaml:"ollama_host"`
	OpenAIAPIKey  string `yaml:"-"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides. An empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func defaults() Config {
	return Config{
		ListenAddr: "0.0.0.0:8000",
		Embeddings: EmbeddingConfig{
			Provider:  ProviderOpenAI,
			Model:     "text-embedding-3-small",
			Dimension: 1536,
		},
		LLM: LLMConfig{
			Provider: ProviderOpenAI,
			Model:    "gpt-4o-mini",
		},
		Index: IndexConfig{
			Backend:     BackendMemory,
			PostgresDSN: "postgres://localhost:5432/docquery?sslmode=disable",
		},
		Telemetry: TelemetryConfig{
			Project:   "docquery",
			Neo4jURI:  "neo4j://localhost:7687",
			Neo4jUser: "neo4j",
			Neo4jPass: "password",
		},
		OllamaHost: "http://localhost:11434",
	}
}

func applyEnv(cfg *Config) {
	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)

	cfg.Embeddings.Provider = getEnv("EMBEDDING_PROVIDER", cfg.Embeddings.Provider)
	cfg.Embeddings.Model = getEnv("EMBEDDING_MODEL", cfg.Embeddings.Model)
	cfg.Embeddings.Dimension = getEnvInt("EMBEDDING_DIMENSION", cfg.Embeddings.Dimension)

	cfg.LLM.Provider = getEnv("LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)

	cfg.Index.Backend = getEnv("INDEX_BACKEND", cfg.Index.Backend)
	cfg.Index.PostgresDSN = getEnv("POSTGRES_DSN", cfg.Index.PostgresDSN)

	cfg.Telemetry.Enabled = getEnvBool("TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Project = getEnv("TELEMETRY_PROJECT", cfg.Telemetry.Project)
	cfg.Telemetry.Neo4jURI = getEnv("NEO4J_URI", cfg.Telemetry.Neo4jURI)
	cfg.Telemetry.Neo4jUser = getEnv("NEO4J_USERNAME", cfg.Telemetry.Neo4jUser)
	cfg.Telemetry.Neo4jPass = getEnv("NEO4J_PASSWORD", cfg.Telemetry.Neo4jPass)

	cfg.OllamaHost = getEnv("OLLAMA_HOST", cfg.OllamaHost)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
