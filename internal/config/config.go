package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	APIAddr          string
	LibraryPath      string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	OllamaHost       string
	ChatModel        string
	EmbeddingModel   string
	EmbedDim         int
	ChunkSize        int
	ChunkOverlap     int
	RetrievalDocs    int
	LLMProvider      string
	EmbedProvider    string
	ForceReload      bool
	LogMode          string
}

func Load() Config {
	return Config{
		APIAddr:          getenv("BOOKWYRM_API_ADDR", ":8000"),
		LibraryPath:      getenv("BOOKWYRM_LIBRARY_PATH", "data/library"),
		PostgresUser:     getenv("POSTGRES_USER", "myuser"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "mypassword"),
		PostgresDB:       getenv("POSTGRES_DB", "my_rag_db"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getenv("POSTGRES_PORT", "5432"),
		OllamaHost:       getenv("OLLAMA_HOST", "http://localhost:11434"),
		ChatModel:        getenv("CHAT_MODEL", "mistral:latest"),
		EmbeddingModel:   getenv("EMBEDDING_MODEL", "nomic-embed-text"),
		EmbedDim:         getenvInt("BOOKWYRM_EMBED_DIM", 768),
		ChunkSize:        getenvInt("BOOKWYRM_CHUNK_SIZE", 800),
		ChunkOverlap:     getenvInt("BOOKWYRM_CHUNK_OVERLAP", 200),
		RetrievalDocs:    getenvInt("BOOKWYRM_RETRIEVAL_DOCS", 15),
		LLMProvider:      getenv("BOOKWYRM_LLM_PROVIDER", "ollama"),
		EmbedProvider:    getenv("BOOKWYRM_EMBED_PROVIDER", "ollama"),
		ForceReload:      getenvBool("FORCE_RELOAD", false),
		LogMode:          getenv("BOOKWYRM_LOG_MODE", "dev"),
	}
}

// DatabaseURL assembles the Postgres connection string from the individual
// POSTGRES_* variables so deployments can keep sharing one .env with the
// database container.
func (c Config) DatabaseURL() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDB)
}

func getenv(k, fallback string) string {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(k string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(k)))
	if v == "" {
		return fallback
	}
	return v == "true" || v == "1" || v == "yes"
}
