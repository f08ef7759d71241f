// Package tagger drives the enrichment pipeline: it fans card prompts out to
// the model under an admission gate, retries transient failures, and hands
// successful results to the sink.
package tagger

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"cardtag/internal/card"
	"cardtag/internal/extract"
	"cardtag/internal/llm"
	"cardtag/internal/prompt"
)

// Tagger performs retry-wrapped tagging calls for single cards and chunks.
type Tagger struct {
	client       llm.Client
	systemPrompt string
	retry        llm.RetryConfig
	logger       *zap.Logger
}

// New creates a tagger. The system prompt carries the taxonomy and schema
// grounding and is reused across every call.
func New(client llm.Client, systemPrompt string, retry llm.RetryConfig, logger *zap.Logger) *Tagger {
	return &Tagger{
		client:       client,
		systemPrompt: systemPrompt,
		retry:        retry,
		logger:       logger,
	}
}

// TagCard tags one card. A response that cannot be parsed into a JSON object
// counts as a failed attempt just like a transport error. After retries are
// exhausted the error is the card's "no result" signal; callers drop the
// card and keep going.
func (t *Tagger) TagCard(ctx context.Context, c card.Card) (card.TagResult, error) {
	userPrompt := prompt.Card(c)

	var result card.TagResult
	err := llm.WithRetry(ctx, t.retry, t.logger, c.Name, func(ctx context.Context) error {
		raw, err := t.client.Complete(ctx, t.systemPrompt, userPrompt)
		if err != nil {
			return err
		}
		var parsed card.TagResult
		if err := json.Unmarshal([]byte(extract.JSON(raw)), &parsed); err != nil {
			return fmt.Errorf("response is not a JSON object: %w", err)
		}
		result = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// TagChunk tags an ordered chunk of cards with one call, expecting a JSON
// array of the same length and order. An array of the wrong length is a
// failed attempt. When retries are exhausted the whole chunk is dropped;
// there is no partial-chunk recovery.
func (t *Tagger) TagChunk(ctx context.Context, chunk []card.Card) ([]card.TagResult, error) {
	userPrompt := prompt.Batch(chunk)
	label := fmt.Sprintf("chunk of %d cards", len(chunk))

	var results []card.TagResult
	err := llm.WithRetry(ctx, t.retry, t.logger, label, func(ctx context.Context) error {
		raw, err := t.client.Complete(ctx, t.systemPrompt, userPrompt)
		if err != nil {
			return err
		}
		var parsed []card.TagResult
		if err := json.Unmarshal([]byte(extract.JSON(raw)), &parsed); err != nil {
			return fmt.Errorf("response is not a JSON array: %w", err)
		}
		if len(parsed) != len(chunk) {
			return fmt.Errorf("array length %d does not match chunk size %d", len(parsed), len(chunk))
		}
		results = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
