// Package rag builds a retrieval-augmented answering pipeline over public
// Nostr posts: a language model picks hashtags for a question, matching posts
// are pulled from a relay and embedded into an in-memory vector store, and
// answers are generated from the most similar posts.
package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ehallmark/agentstr/internal/jsonext"
	"github.com/ehallmark/agentstr/pkg/llm"
	"github.com/ehallmark/agentstr/pkg/nostr"
)

const (
	maxHashtags       = 5
	defaultPostLimit  = 10
	defaultTopK       = 5
	embedBatchSize    = 16
	embedConcurrency  = 4
)

// PostReader fetches public posts by hashtag. *nostr.Client satisfies it.
type PostReader interface {
	ReadPostsByTags(ctx context.Context, tags []string, limit int) ([]*nostr.Event, error)
}

// RAG wires the hashtag selector, post reader, embedder, and vector store into
// one query pipeline.
type RAG struct {
	completer llm.Completer
	embedder  llm.Embedder
	reader    PostReader
	store     *Store

	postLimit int
	topK      int
}

// Option configures a RAG pipeline.
type Option func(*RAG)

// WithPostLimit caps how many posts one knowledge-base build fetches.
func WithPostLimit(n int) Option {
	return func(r *RAG) {
		if n > 0 {
			r.postLimit = n
		}
	}
}

// WithTopK sets how many documents a retrieval returns.
func WithTopK(n int) Option {
	return func(r *RAG) {
		if n > 0 {
			r.topK = n
		}
	}
}

// New creates a RAG pipeline. All three collaborators are required.
func New(completer llm.Completer, embedder llm.Embedder, reader PostReader, opts ...Option) (*RAG, error) {
	if completer == nil {
		return nil, fmt.Errorf("rag: completer is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder is required")
	}
	if reader == nil {
		return nil, fmt.Errorf("rag: post reader is required")
	}
	r := &RAG{
		completer: completer,
		embedder:  embedder,
		reader:    reader,
		store:     NewStore(),
		postLimit: defaultPostLimit,
		topK:      defaultTopK,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// SelectHashtags asks the model for hashtags relevant to the question. A
// malformed model response falls back to scanning the text for '#'-prefixed
// words. At most five hashtags are returned, without the '#' prefix.
func (r *RAG) SelectHashtags(ctx context.Context, question string, previous []string) ([]string, error) {
	history, _ := json.Marshal(previous)
	prompt := fmt.Sprintf(`You are a hashtag selector for Nostr. Given a question, suggest relevant hashtags that would help find relevant content.
Return ONLY the hashtags in a JSON array format, like: ["#hashtag1", "#hashtag2"]
Use at most 5 hashtags.

Question: %s
Previous hashtags: %s
`, question, history)

	response, err := r.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("select hashtags: %w", err)
	}

	var tags []string
	if raw, err := jsonext.ExtractArray(response); err == nil {
		if json.Unmarshal(raw, &tags) != nil {
			tags = nil
		}
	}
	if tags == nil {
		for _, word := range strings.Fields(response) {
			if strings.HasPrefix(word, "#") {
				tags = append(tags, word)
			}
		}
	}
	if len(tags) > maxHashtags {
		tags = tags[:maxHashtags]
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimLeft(t, "#")
		if t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

// BuildKnowledgeBase selects hashtags for the question, fetches matching
// posts, and embeds them into the store. It returns the fetched posts.
// Rebuilding with overlapping posts is idempotent: documents are keyed by
// event ID.
func (r *RAG) BuildKnowledgeBase(ctx context.Context, question string) ([]*nostr.Event, error) {
	tags, err := r.SelectHashtags(ctx, question, nil)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, nil
	}
	log.Printf("rag: selected hashtags: %v", tags)

	posts, err := r.reader.ReadPostsByTags(ctx, tags, r.postLimit)
	if err != nil {
		return nil, fmt.Errorf("read posts: %w", err)
	}
	if len(posts) == 0 {
		return nil, nil
	}
	if err := r.embedPosts(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// embedPosts embeds post contents in concurrent batches and upserts them.
func (r *RAG) embedPosts(ctx context.Context, posts []*nostr.Event) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	batches := make([][]Document, 0, len(posts)/embedBatchSize+1)
	for start := 0; start < len(posts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(posts) {
			end = len(posts)
		}
		batch := posts[start:end]
		docs := make([]Document, len(batch))
		batches = append(batches, docs)

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, p := range batch {
				texts[i] = p.Content
			}
			embeddings, err := r.embedder.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed posts: %w", err)
			}
			if len(embeddings) != len(batch) {
				return fmt.Errorf("embed posts: got %d embeddings for %d texts", len(embeddings), len(batch))
			}
			for i, p := range batch {
				docs[i] = Document{
					ID:        p.ID,
					Content:   p.Content,
					Embedding: embeddings[i],
					Metadata:  map[string]string{"pubkey": p.PubKey},
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, docs := range batches {
		if err := r.store.Upsert(docs); err != nil {
			return err
		}
	}
	return nil
}

// Retrieve builds the knowledge base for the question and returns the most
// similar documents.
func (r *RAG) Retrieve(ctx context.Context, question string) ([]Result, error) {
	if _, err := r.BuildKnowledgeBase(ctx, question); err != nil {
		return nil, err
	}
	embeddings, err := r.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("embed question: got %d embeddings for 1 text", len(embeddings))
	}
	return r.store.Search(embeddings[0], r.topK), nil
}

// Query answers the question from retrieved post content.
func (r *RAG) Query(ctx context.Context, question string) (string, error) {
	results, err := r.Retrieve(ctx, question)
	if err != nil {
		return "", err
	}
	contents := make([]string, len(results))
	for i, res := range results {
		contents[i] = res.Document.Content
	}
	prompt := fmt.Sprintf(`You are an expert assistant. Answer the following question based on the provided context.

Question: %s

Context:
%s

Answer:`, question, strings.Join(contents, "\n\n"))

	answer, err := r.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return answer, nil
}
