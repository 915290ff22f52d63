package rag

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehallmark/agentstr/pkg/llm"
	"github.com/ehallmark/agentstr/pkg/nostr"
)

// hashEmbedder maps each text to a deterministic unit vector so similarity
// is 1.0 for identical texts and lower otherwise.
type hashEmbedder struct{}

func (hashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 8)
		for j, r := range text {
			vec[j%8] += float32(r)
		}
		out[i] = vec
	}
	return out, nil
}

type errEmbedder struct{}

func (errEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("embedding service unavailable")
}

type fakeReader struct {
	posts    []*nostr.Event
	lastTags []string
}

func (f *fakeReader) ReadPostsByTags(ctx context.Context, tags []string, limit int) ([]*nostr.Event, error) {
	f.lastTags = tags
	if limit < len(f.posts) {
		return f.posts[:limit], nil
	}
	return f.posts, nil
}

func post(id, content string) *nostr.Event {
	return &nostr.Event{ID: id, Kind: nostr.KindTextNote, PubKey: "author", Content: content}
}

func TestSelectHashtagsFromJSONArray(t *testing.T) {
	r, err := New(llm.NewMock(`["#bitcoin", "#lightning"]`), hashEmbedder{}, &fakeReader{})
	require.NoError(t, err)

	tags, err := r.SelectHashtags(context.Background(), "how do lightning payments work?", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"bitcoin", "lightning"}, tags)
}

func TestSelectHashtagsFallbackScansText(t *testing.T) {
	r, err := New(llm.NewMock("Good tags would be #bitcoin and #nostr, maybe #ai #ml #dev #extra too"),
		hashEmbedder{}, &fakeReader{})
	require.NoError(t, err)

	tags, err := r.SelectHashtags(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Len(t, tags, 5, "fallback caps at five hashtags")
	assert.Equal(t, "bitcoin", tags[0])
}

func TestSelectHashtagsCapsJSONArray(t *testing.T) {
	r, err := New(llm.NewMock(`["#a", "#b", "#c", "#d", "#e", "#f", "#g"]`),
		hashEmbedder{}, &fakeReader{})
	require.NoError(t, err)

	tags, err := r.SelectHashtags(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Len(t, tags, 5)
}

func TestSelectHashtagsPropagatesCompleterError(t *testing.T) {
	r, err := New(llm.NewMockError(fmt.Errorf("model down")), hashEmbedder{}, &fakeReader{})
	require.NoError(t, err)

	_, err = r.SelectHashtags(context.Background(), "anything", nil)
	assert.Error(t, err)
}

func TestBuildKnowledgeBase(t *testing.T) {
	reader := &fakeReader{posts: []*nostr.Event{
		post("ev1", "lightning channels explained"),
		post("ev2", "cooking with cast iron"),
	}}
	r, err := New(llm.NewMock(`["#lightning"]`), hashEmbedder{}, reader)
	require.NoError(t, err)

	posts, err := r.BuildKnowledgeBase(context.Background(), "how do channels work?")
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	assert.Equal(t, []string{"lightning"}, reader.lastTags, "hashtags are stripped before the relay query")
	assert.Equal(t, 2, r.store.Len())
}

func TestBuildKnowledgeBaseIsIdempotentByEventID(t *testing.T) {
	reader := &fakeReader{posts: []*nostr.Event{post("ev1", "same post")}}
	r, err := New(llm.NewMock(`["#x"]`), hashEmbedder{}, reader)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = r.BuildKnowledgeBase(ctx, "q")
	require.NoError(t, err)
	_, err = r.BuildKnowledgeBase(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, 1, r.store.Len())
}

func TestBuildKnowledgeBasePropagatesEmbedError(t *testing.T) {
	reader := &fakeReader{posts: []*nostr.Event{post("ev1", "a post")}}
	r, err := New(llm.NewMock(`["#x"]`), errEmbedder{}, reader)
	require.NoError(t, err)

	_, err = r.BuildKnowledgeBase(context.Background(), "q")
	assert.ErrorContains(t, err, "embedding service unavailable")
}

func TestRetrieveRanksBySimilarity(t *testing.T) {
	reader := &fakeReader{posts: []*nostr.Event{
		post("ev1", "zap receipts"),
		post("ev2", "exact question text"),
		post("ev3", "relay gossip"),
	}}
	// First completion selects hashtags, second is unused here.
	r, err := New(llm.NewMock(`["#x"]`), hashEmbedder{}, reader, WithTopK(2))
	require.NoError(t, err)

	results, err := r.Retrieve(context.Background(), "exact question text")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "exact question text", results[0].Document.Content)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-6)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestQueryFeedsContextToModel(t *testing.T) {
	reader := &fakeReader{posts: []*nostr.Event{post("ev1", "nostr uses websockets")}}
	mock := llm.NewMock(`["#nostr"]`, "It uses websockets.")
	r, err := New(mock, hashEmbedder{}, reader)
	require.NoError(t, err)

	answer, err := r.Query(context.Background(), "what transport does nostr use?")
	require.NoError(t, err)
	assert.Equal(t, "It uses websockets.", answer)

	prompts := mock.Prompts()
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[1], "nostr uses websockets", "retrieved posts appear in the answer prompt")
	assert.Contains(t, prompts[1], "what transport does nostr use?")
}

func TestStoreRejectsDimensionMismatch(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Upsert([]Document{{ID: "a", Content: "x", Embedding: []float32{1, 0}}}))
	err := s.Upsert([]Document{{ID: "b", Content: "y", Embedding: []float32{1, 0, 0}}})
	assert.ErrorContains(t, err, "dimension mismatch")
}
