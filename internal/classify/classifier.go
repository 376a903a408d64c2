// Package classify implements the first pipeline stage: scoring unseen feed
// items against the configured interest topics.
package classify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/kalambet/newsdigest/internal/config"
	"github.com/kalambet/newsdigest/internal/feed"
	"github.com/kalambet/newsdigest/internal/llm"
)

const (
	defaultBatchSize = 10
	defaultThreshold = 0.6
)

// Completer is the interface for text completion via the classification
// service.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// Match pairs an item with the topic it scored against. Topic is a reference
// into the active configuration, not a copy the pipeline owns.
type Match struct {
	Item      feed.Item
	Topic     config.Topic
	Relevance float64
}

// Classifier screens item batches against the topic catalog using a
// completion service.
type Classifier struct {
	llm       Completer
	model     string
	batchSize int
	threshold float64
}

// NewClassifier creates a Classifier. A threshold <= 0 defaults to 0.6.
func NewClassifier(client Completer, model string, threshold float64) *Classifier {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	return &Classifier{
		llm:       client,
		model:     model,
		batchSize: defaultBatchSize,
		threshold: threshold,
	}
}

// batchMatch mirrors one element of the JSON array the service returns per
// batch. Index and TopicIndex refer to the batch-local item ordering and the
// topic catalog respectively.
type batchMatch struct {
	Index      int     `json:"index"`
	TopicIndex int     `json:"topicIndex"`
	Relevance  float64 `json:"relevance"`
}

// Classify partitions items into fixed-size batches and issues one
// classification request per batch. A batch whose call or parse fails
// contributes zero matches and is logged; remaining batches proceed
// unaffected. No match below the relevance threshold is ever returned.
func (c *Classifier) Classify(ctx context.Context, items []feed.Item, topics []config.Topic) []Match {
	if len(items) == 0 || len(topics) == 0 {
		return nil
	}

	var matches []Match
	for start := 0; start < len(items); start += c.batchSize {
		end := min(start+c.batchSize, len(items))
		batch := items[start:end]

		prompt := buildFilterPrompt(topics, batch, c.threshold)

		raw, err := c.llm.Complete(ctx, c.model, prompt)
		if err != nil {
			slog.Warn("classification batch failed", "batch_start", start, "error", err)
			continue
		}

		jsonText, err := llm.FirstJSONArray(raw)
		if err != nil {
			slog.Warn("classification response had no JSON array", "batch_start", start, "error", err)
			continue
		}

		var results []batchMatch
		if err := json.Unmarshal([]byte(jsonText), &results); err != nil {
			slog.Warn("classification response malformed", "batch_start", start, "error", err)
			continue
		}

		for _, r := range results {
			if r.Index < 0 || r.Index >= len(batch) {
				slog.Warn("classification returned out-of-range item index", "index", r.Index, "batch_size", len(batch))
				continue
			}
			if r.Relevance < c.threshold {
				continue
			}

			topic := topics[0]
			if r.TopicIndex >= 0 && r.TopicIndex < len(topics) {
				topic = topics[r.TopicIndex]
			} else {
				// Fallback to the first topic; logged because it can
				// misattribute the match's priority.
				slog.Warn("classification returned out-of-range topic index, using first topic",
					"topic_index", r.TopicIndex, "item", batch[r.Index].Title)
			}

			matches = append(matches, Match{
				Item:      batch[r.Index],
				Topic:     topic,
				Relevance: r.Relevance,
			})
		}
	}

	return matches
}
