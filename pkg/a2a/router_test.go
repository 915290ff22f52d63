package a2a

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehallmark/agentstr/pkg/llm"
)

func sats(n int64) *int64 { return &n }

func translatorCard() *AgentCard {
	return &AgentCard{
		Name:        "Translator",
		Description: "Translates text between languages.",
		Skills: []Skill{
			{Name: "translate", Description: "Translate text", Satoshis: sats(100)},
		},
		Satoshis: sats(50),
	}
}

func TestRoutePricing(t *testing.T) {
	tests := []struct {
		name     string
		card     *AgentCard
		response string
		wantCost int64
		wantCan  bool
	}{
		{
			name:     "priced skill plus base",
			card:     translatorCard(),
			response: `{"can_handle":true,"user_message":"I'll translate it.","skills_used":["translate"]}`,
			wantCost: 150,
			wantCan:  true,
		},
		{
			name:     "no skills used charges base only",
			card:     translatorCard(),
			response: `{"can_handle":true,"user_message":"Sure.","skills_used":[]}`,
			wantCost: 50,
			wantCan:  true,
		},
		{
			name:     "no skills and no base is free",
			card:     &AgentCard{Name: "Helper", Description: "Helps."},
			response: `{"can_handle":true,"user_message":"Happy to help.","skills_used":[]}`,
			wantCost: 0,
			wantCan:  true,
		},
		{
			name:     "cannot handle is always free",
			card:     translatorCard(),
			response: `{"can_handle":false,"user_message":"Out of scope.","skills_used":["translate"]}`,
			wantCost: 0,
			wantCan:  false,
		},
		{
			name: "unpriced matched skill omits skill component",
			card: &AgentCard{
				Name:     "Helper",
				Skills:   []Skill{{Name: "summarize", Description: "Summarize text"}},
				Satoshis: sats(25),
			},
			response: `{"can_handle":true,"user_message":"On it.","skills_used":["summarize"]}`,
			wantCost: 25,
			wantCan:  true,
		},
		{
			name: "multiple priced skills sum",
			card: &AgentCard{
				Name: "Multi",
				Skills: []Skill{
					{Name: "translate", Satoshis: sats(100)},
					{Name: "summarize", Satoshis: sats(30)},
				},
			},
			response: `{"can_handle":true,"user_message":"Both.","skills_used":["translate","summarize"]}`,
			wantCost: 130,
			wantCan:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(llm.NewMock(tt.response))
			decision := router.Route(context.Background(), "do the thing", tt.card, "")
			assert.Equal(t, tt.wantCan, decision.CanHandle)
			assert.Equal(t, tt.wantCost, decision.CostSats)
		})
	}
}

func TestRouteSkillMatchIsCaseInsensitive(t *testing.T) {
	card := &AgentCard{
		Name:   "Translator",
		Skills: []Skill{{Name: "Translate", Satoshis: sats(100)}},
	}
	for _, ref := range []string{"translate", "TRANSLATE", "Translate"} {
		router := NewRouter(llm.NewMock(
			`{"can_handle":true,"user_message":"ok","skills_used":["` + ref + `"]}`,
		))
		decision := router.Route(context.Background(), "translate this", card, "")
		assert.Equal(t, int64(100), decision.CostSats, "reference %q should match", ref)
	}
}

func TestRouteMalformedResponses(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"plain text without braces", "I am unable to answer in JSON today."},
		{"braces around garbage", "result: {not json at all}"},
		{"empty response", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(llm.NewMock(tt.response))
			decision := router.Route(context.Background(), "hello", translatorCard(), "")
			assert.False(t, decision.CanHandle)
			assert.Zero(t, decision.CostSats)
			assert.NotEmpty(t, decision.UserMessage)
			assert.Empty(t, decision.SkillsUsed)
		})
	}
}

func TestRouteMissingFieldsDefault(t *testing.T) {
	// A bare object is valid JSON; absent fields take their zero defaults.
	router := NewRouter(llm.NewMock(`{}`))
	decision := router.Route(context.Background(), "hello", translatorCard(), "")
	assert.False(t, decision.CanHandle)
	assert.Zero(t, decision.CostSats)
	assert.Empty(t, decision.UserMessage)
	assert.Empty(t, decision.SkillsUsed)
}

func TestRouteCompleterFailure(t *testing.T) {
	router := NewRouter(llm.NewMockError(errors.New("connection refused")))
	decision := router.Route(context.Background(), "hello", translatorCard(), "")
	assert.False(t, decision.CanHandle)
	assert.Zero(t, decision.CostSats)
	assert.Contains(t, decision.UserMessage, "connection refused")
	assert.Empty(t, decision.SkillsUsed)
}

func TestRouteResponseWrappedInProse(t *testing.T) {
	router := NewRouter(llm.NewMock(
		"Here's my analysis:\n```json\n{\"can_handle\":true,\"user_message\":\"Yes.\",\"skills_used\":[\"translate\"]}\n```\nHope that helps!",
	))
	decision := router.Route(context.Background(), "translate this", translatorCard(), "")
	assert.True(t, decision.CanHandle)
	assert.Equal(t, int64(150), decision.CostSats)
}

func TestRouteConversationContinuity(t *testing.T) {
	mock := llm.NewMock(`{"can_handle":true,"user_message":"ok","skills_used":[]}`)
	router := NewRouter(mock)
	card := translatorCard()

	router.Route(context.Background(), "hello", card, "t1")
	router.Route(context.Background(), "please translate", card, "t1")

	prompt := mock.LastPrompt()
	helloAt := strings.Index(prompt, "hello")
	translateAt := strings.Index(prompt, "please translate")
	require.GreaterOrEqual(t, helloAt, 0, "prompt should contain first request")
	require.GreaterOrEqual(t, translateAt, 0, "prompt should contain second request")
	assert.Less(t, helloAt, translateAt, "history must precede the new request")
}

func TestRouteHistoryAccumulatesVerbatim(t *testing.T) {
	mock := llm.NewMock(`{"can_handle":false,"user_message":"no","skills_used":[]}`)
	store := NewMemoryStore(0)
	router := NewRouter(mock, WithConversationStore(store))
	card := translatorCard()

	router.Route(context.Background(), "first", card, "t9")
	router.Route(context.Background(), "second", card, "t9")
	router.Route(context.Background(), "third", card, "t9")

	text, ok, err := store.Get(context.Background(), "t9")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first\n\nsecond\n\nthird", text)
}

func TestRouteThreadsAreIndependent(t *testing.T) {
	mock := llm.NewMock(`{"can_handle":false,"user_message":"no","skills_used":[]}`)
	store := NewMemoryStore(0)
	router := NewRouter(mock, WithConversationStore(store))
	card := translatorCard()

	router.Route(context.Background(), "alpha", card, "a")
	router.Route(context.Background(), "beta", card, "b")

	textA, _, _ := store.Get(context.Background(), "a")
	textB, _, _ := store.Get(context.Background(), "b")
	assert.Equal(t, "alpha", textA)
	assert.Equal(t, "beta", textB)
}

func TestRouteWithoutThreadIDSkipsStore(t *testing.T) {
	mock := llm.NewMock(`{"can_handle":false,"user_message":"no","skills_used":[]}`)
	store := NewMemoryStore(0)
	router := NewRouter(mock, WithConversationStore(store))

	router.Route(context.Background(), "hello", translatorCard(), "")
	assert.Zero(t, store.Len())
}

func TestRouteSingleCompletionCall(t *testing.T) {
	mock := llm.NewMock(`{"can_handle":true,"user_message":"ok","skills_used":[]}`)
	router := NewRouter(mock)
	router.Route(context.Background(), "hello", translatorCard(), "")
	assert.Len(t, mock.Prompts(), 1)
}

func TestBuildPromptEnumeratesSkills(t *testing.T) {
	card := &AgentCard{
		Name:        "Poly",
		Description: "A polyglot agent.",
		Skills: []Skill{
			{Name: "translate", Description: "Translate text"},
			{Name: "summarize", Description: "Summarize text"},
		},
	}
	prompt := buildPrompt("do it", card)
	assert.Contains(t, prompt, "Name: Poly")
	assert.Contains(t, prompt, "- translate: Translate text")
	assert.Contains(t, prompt, "- summarize: Summarize text")
	assert.Contains(t, prompt, `"can_handle"`)
	assert.Contains(t, prompt, `"skills_used"`)
}
