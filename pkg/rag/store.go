package rag

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Document is an embedded piece of knowledge, typically one Nostr post.
type Document struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  map[string]string
}

// Result pairs a document with its similarity score.
type Result struct {
	Document Document
	Score    float32
}

// Store is an in-memory vector store with brute-force cosine search. It is
// sized for a per-conversation knowledge base, not a production corpus.
type Store struct {
	mu   sync.RWMutex
	docs map[string]Document
	dims int
}

// NewStore creates an empty store. Embedding dimensionality is fixed by the
// first upserted document.
func NewStore() *Store {
	return &Store{docs: make(map[string]Document)}
}

// Upsert inserts or replaces documents by ID.
func (s *Store) Upsert(docs []Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("rag: document with empty ID")
		}
		if len(doc.Embedding) == 0 {
			return fmt.Errorf("rag: document %s has no embedding", doc.ID)
		}
		if s.dims == 0 {
			s.dims = len(doc.Embedding)
		} else if len(doc.Embedding) != s.dims {
			return fmt.Errorf("rag: document %s embedding dimension mismatch: expected %d, got %d",
				doc.ID, s.dims, len(doc.Embedding))
		}
		emb := make([]float32, len(doc.Embedding))
		copy(emb, doc.Embedding)
		doc.Embedding = emb
		s.docs[doc.ID] = doc
	}
	return nil
}

// Search returns the topK most similar documents by cosine similarity,
// highest score first.
func (s *Store) Search(embedding []float32, topK int) []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Result, 0, len(s.docs))
	for _, doc := range s.docs {
		results = append(results, Result{
			Document: doc,
			Score:    cosineSimilarity(embedding, doc.Embedding),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (sqrt(normA) * sqrt(normB))
}

func sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}
