package a2a

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ehallmark/agentstr/internal/jsonext"
	"github.com/ehallmark/agentstr/internal/observability"
	"github.com/ehallmark/agentstr/pkg/llm"
	metrics "github.com/ehallmark/agentstr/pkg/observability"
)

// Router decides whether an agent can fulfill a request and what it costs.
// A Router never fails outward: completion and parse errors fold into a
// negative Decision carrying the diagnostic.
type Router struct {
	completer llm.Completer
	store     ConversationStore
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithConversationStore replaces the default in-memory conversation store.
func WithConversationStore(store ConversationStore) RouterOption {
	return func(r *Router) { r.store = store }
}

// NewRouter creates a Router using the given completion backend. Without
// options it tracks conversations in a bounded in-memory store.
func NewRouter(completer llm.Completer, opts ...RouterOption) *Router {
	r := &Router{
		completer: completer,
		store:     NewMemoryStore(0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// routerReply mirrors the JSON object the model is instructed to return.
type routerReply struct {
	CanHandle   bool     `json:"can_handle"`
	UserMessage string   `json:"user_message"`
	SkillsUsed  []string `json:"skills_used"`
}

// Route runs one routing decision for the given request against the card.
// A non-empty threadID joins the request to that thread's prior history: the
// stored text is prepended (blank-line separated) and the combined text is
// written back, so the next call on the thread sees the full exchange.
//
// Exactly one completion call is issued; there are no retries.
func (r *Router) Route(ctx context.Context, request string, card *AgentCard, threadID string) Decision {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "a2a.route",
		trace.WithAttributes(
			attribute.String("agent.name", card.Name),
			attribute.String("thread.id", threadID),
		),
	)
	defer span.End()

	request = r.joinHistory(ctx, request, threadID)

	response, err := r.completer.Complete(ctx, buildPrompt(request, card))
	if err != nil {
		return r.fail(fmt.Sprintf("Error invoking completion: %v", err), start)
	}

	raw, err := jsonext.ExtractObject(response)
	if err != nil {
		return r.fail(fmt.Sprintf("Error parsing completion response: %v", err), start)
	}
	var reply routerReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return r.fail(fmt.Sprintf("Error parsing completion response: %v", err), start)
	}

	decision := Decision{
		CanHandle:   reply.CanHandle,
		UserMessage: reply.UserMessage,
		SkillsUsed:  reply.SkillsUsed,
	}
	if decision.SkillsUsed == nil {
		decision.SkillsUsed = []string{}
	}
	if decision.CanHandle {
		decision.CostSats = card.cost(decision.SkillsUsed)
	}

	span.SetAttributes(
		attribute.Bool("decision.can_handle", decision.CanHandle),
		attribute.Int64("decision.cost_sats", decision.CostSats),
	)
	metrics.RecordRouteDecision(decision.CanHandle, time.Since(start))
	return decision
}

// joinHistory prepends stored thread history and writes the combined text
// back. Store failures degrade to history-free routing rather than failing
// the call.
func (r *Router) joinHistory(ctx context.Context, request, threadID string) string {
	if threadID == "" {
		return request
	}
	prior, ok, err := r.store.Get(ctx, threadID)
	if err != nil {
		log.Printf("a2a: conversation store get (thread %s): %v", threadID, err)
	} else if ok {
		request = prior + "\n\n" + request
	}
	if err := r.store.Set(ctx, threadID, request); err != nil {
		log.Printf("a2a: conversation store set (thread %s): %v", threadID, err)
	}
	return request
}

func (r *Router) fail(diagnostic string, start time.Time) Decision {
	log.Printf("a2a: routing failed: %s", diagnostic)
	metrics.RecordRouteDecision(false, time.Since(start))
	return Decision{
		CanHandle:   false,
		CostSats:    0,
		UserMessage: diagnostic,
		SkillsUsed:  []string{},
	}
}

func buildPrompt(request string, card *AgentCard) string {
	var b strings.Builder
	b.WriteString("You are an agent router that determines if an agent can handle a user's request.\n\n")
	b.WriteString("Agent Information:\n")
	fmt.Fprintf(&b, "Name: %s\n", card.Name)
	fmt.Fprintf(&b, "Description: %s\n\n", card.Description)
	b.WriteString("Skills:")
	for _, s := range card.Skills {
		fmt.Fprintf(&b, "\n- %s: %s", s.Name, s.Description)
	}
	fmt.Fprintf(&b, "\n\nUser Request History: \n\n%s\n\n", request)
	b.WriteString(`
Analyze if the agent can handle this request based on their skills and description and chat history.
Consider both the agent's capabilities and whether the request matches their purpose.

The agent may need to use multiple skills to handle the request. If so, include all
relevant skills.

The user_message should be a friendly, conversational message that:
- Confirms the action to be taken
- Explains what will be done in simple terms
- Asks for confirmation to proceed
- Is concise (1-2 sentences max)

Respond with a single JSON object with these fields:
{
    "can_handle": boolean,    # Whether the agent can handle this request
    "user_message": string,   # Friendly message to ask the user if they want to proceed
    "skills_used": [string]   # Names of skills being used, if any
}
`)
	return b.String()
}
