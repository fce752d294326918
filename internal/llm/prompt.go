package llm

import (
	"strings"

	"github.com/rcliao/persona-memory/internal/model"
	"github.com/rcliao/persona-memory/internal/role"
)

// Prompt holds the parts of a persona system prompt.
type Prompt struct {
	Role model.Role
	// Instructions are appended after the role's own instructions.
	Instructions string
	// RoleContext is a digest of the role's own recent memories.
	RoleContext string
	// Relevant is a digest of the memories ranked for the query.
	Relevant string
}

// System renders the system prompt: persona, tone, domains, instructions,
// additional instructions and memory digests, in that order. Empty parts are
// omitted.
func (p Prompt) System() string {
	r := p.Role
	parts := []string{strings.TrimSpace(r.SystemPrompt)}

	if t, ok := role.Tones[r.Tone]; ok {
		parts = append(parts, "Tone: "+r.Tone+" - "+t.Description+"\nTone Guidance: "+t.Modifiers)
	}
	if len(r.Domains) > 0 {
		parts = append(parts, "Domains of expertise: "+strings.Join(r.Domains, ", "))
	}
	if s := strings.TrimSpace(r.Instructions); s != "" {
		parts = append(parts, "Instructions: "+s)
	}
	if s := strings.TrimSpace(p.Instructions); s != "" {
		parts = append(parts, "Additional Instructions: "+s)
	}
	if p.RoleContext != "" {
		parts = append(parts, "Relevant context from previous interactions:\n"+p.RoleContext)
	}
	if p.Relevant != "" {
		parts = append(parts, "Relevant memories for this query:\n"+p.Relevant)
	}

	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n\n")
}

// Exchange formats a completed query and response for write-back.
func Exchange(query, response string) string {
	return "User asked: " + query + "\nAssistant responded: " + response
}
