// Package agent holds per-document conversation state. Each document gets one
// agent, created lazily on first chat and reused for the rest of the process
// lifetime so follow-up questions keep their context.
package agent

import (
	"context"
	"fmt"
	"sync"

	"bookwyrm/internal/logger"
	"bookwyrm/internal/models"
	"bookwyrm/internal/providers"
)

// historyExchanges bounds how many prior question/answer pairs are replayed
// to the model on each turn.
const historyExchanges = 3

const assistantInstructions = "You are a book assistant. Answer questions using only the provided " +
	"passages from the document. If the passages do not contain the answer, say so " +
	"instead of guessing."

type Retriever interface {
	Search(ctx context.Context, vector []float32, topK int, nameFilter string) ([]models.ChunkResult, error)
}

type Agent struct {
	mu        sync.Mutex
	key       string
	filter    string
	llm       providers.LLMProvider
	embedder  providers.EmbeddingProvider
	retriever Retriever
	topK      int
	dim       int
	history   []providers.Message
	log       *logger.Logger
}

// Run answers one question: embed it, retrieve the closest chunks for this
// agent's document, and generate with the bounded conversation history.
func (a *Agent) Run(ctx context.Context, prompt string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	vectors, _, err := a.embedder.Embed(ctx, providers.EmbedRequest{
		Operation: "chat_embed",
		Inputs:    []string{prompt},
		Dimension: a.dim,
	})
	if err != nil {
		return "", fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) == 0 {
		return "", fmt.Errorf("embed question: no vector returned")
	}

	results, err := a.retriever.Search(ctx, vectors[0], a.topK, a.filter)
	if err != nil {
		return "", fmt.Errorf("retrieve passages: %w", err)
	}
	passages := make([]string, 0, len(results))
	for _, r := range results {
		passages = append(passages, r.Content)
	}

	history := make([]providers.Message, 0, len(a.history)+1)
	history = append(history, providers.Message{Role: "system", Content: assistantInstructions})
	history = append(history, a.history...)

	resp, info, err := a.llm.Generate(ctx, providers.GenerateRequest{
		Operation: "chat",
		Prompt:    prompt,
		Context:   passages,
		History:   history,
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	a.log.Debug("agent answered", "key", a.key, "passages", len(passages), "model", info.Model)

	a.history = append(a.history,
		providers.Message{Role: "user", Content: prompt},
		providers.Message{Role: "assistant", Content: resp.Text},
	)
	if max := historyExchanges * 2; len(a.history) > max {
		a.history = a.history[len(a.history)-max:]
	}
	return resp.Text, nil
}

// Registry maps conversation keys to their agents.
type Registry struct {
	mu        sync.Mutex
	agents    map[string]*Agent
	llm       providers.LLMProvider
	embedder  providers.EmbeddingProvider
	retriever Retriever
	topK      int
	dim       int
	log       *logger.Logger
}

func NewRegistry(llm providers.LLMProvider, embedder providers.EmbeddingProvider, retriever Retriever, topK, dim int, log *logger.Logger) *Registry {
	return &Registry{
		agents:    make(map[string]*Agent),
		llm:       llm,
		embedder:  embedder,
		retriever: retriever,
		topK:      topK,
		dim:       dim,
		log:       log,
	}
}

// GetOrCreate returns the agent for key, creating it with the given retrieval
// filter on first use. Concurrent callers for the same key get the same
// instance.
func (r *Registry) GetOrCreate(key, filter string) *Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[key]; ok {
		return a
	}
	a := &Agent{
		key:       key,
		filter:    filter,
		llm:       r.llm,
		embedder:  r.embedder,
		retriever: r.retriever,
		topK:      r.topK,
		dim:       r.dim,
		log:       r.log,
	}
	r.agents[key] = a
	r.log.Info("created document agent", "key", key, "filter", filter)
	return a
}

// Remove drops the agent for key, if any. Used when a document is deleted.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, key)
}
