// Package a2a implements agent-to-agent capability routing: given an agent's
// advertised skills and a natural-language request, it decides whether the
// agent can handle the request and what it would cost.
package a2a

import "strings"

// Skill is a named, priced capability an agent advertises. Name is the
// matching key; duplicate names within one card are a configuration hazard.
type Skill struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`

	// Satoshis is the price for using this skill, in the smallest currency
	// unit. nil means the skill is free or priced at the agent's base rate.
	Satoshis *int64 `json:"satoshis,omitempty" yaml:"satoshis,omitempty"`
}

// AgentCard is an agent's public identity and capability sheet.
type AgentCard struct {
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Skills      []Skill `json:"skills,omitempty" yaml:"skills,omitempty"`

	// Satoshis is the base price for interacting with the agent, added on
	// top of any skill-specific pricing. nil means no base charge.
	Satoshis *int64 `json:"satoshis,omitempty" yaml:"satoshis,omitempty"`

	// PubKey is the agent's Nostr public key.
	PubKey string `json:"nostr_pubkey" yaml:"nostr_pubkey"`

	// Relays are the agent's relay endpoints, primary first.
	Relays []string `json:"nostr_relays,omitempty" yaml:"nostr_relays,omitempty"`
}

// Decision is the outcome of one routing call.
type Decision struct {
	// CanHandle reports whether the agent can fulfill the request.
	CanHandle bool `json:"can_handle"`

	// CostSats is the total price for handling the request. Always 0 when
	// CanHandle is false.
	CostSats int64 `json:"cost_sats"`

	// UserMessage is a short confirmation or question for the requester. On
	// failure it carries the diagnostic instead.
	UserMessage string `json:"user_message"`

	// SkillsUsed names the skills the agent would engage.
	SkillsUsed []string `json:"skills_used"`
}

// cost prices a positive decision: the sum of every case-insensitively
// matched priced skill, plus the base price when set. A matched-skill sum of
// zero leaves the skill component out entirely, so a card with only unpriced
// skills charges base price alone.
func (c *AgentCard) cost(skillsUsed []string) int64 {
	var skillCost int64
	for _, name := range skillsUsed {
		for _, s := range c.Skills {
			if strings.EqualFold(s.Name, name) && s.Satoshis != nil {
				skillCost += *s.Satoshis
				break
			}
		}
	}
	var total int64
	if skillCost > 0 {
		total = skillCost
	}
	if c.Satoshis != nil {
		total += *c.Satoshis
	}
	return total
}
