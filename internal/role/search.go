package role

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/rcliao/persona-memory/internal/model"
)

// Query filters the catalog. Empty fields match every role.
type Query struct {
	// Text is matched case-insensitively against name, description and
	// instructions.
	Text string
	// Domains matches roles covering any of the listed domains.
	Domains []string
	Tone    string
}

// Match reports whether r satisfies every set field of q.
func (q Query) Match(r model.Role) bool {
	if q.Tone != "" && !strings.EqualFold(r.Tone, q.Tone) {
		return false
	}
	if len(q.Domains) > 0 && !slices.ContainsFunc(r.Domains, func(d string) bool {
		return slices.ContainsFunc(q.Domains, func(want string) bool { return strings.EqualFold(d, want) })
	}) {
		return false
	}
	if text := strings.ToLower(strings.TrimSpace(q.Text)); text != "" {
		hay := strings.ToLower(r.Name + "\n" + r.Description + "\n" + r.Instructions)
		if !strings.Contains(hay, text) {
			return false
		}
	}
	return true
}

// Find returns the roles matching q, ordered by id.
func (c *Catalog) Find(ctx context.Context, q Query) ([]model.Role, error) {
	roles, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	out := roles[:0]
	for _, r := range roles {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Domains returns the distinct domains across all roles, lowercased and
// sorted.
func (c *Catalog) Domains(ctx context.Context) ([]string, error) {
	roles, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := []string{}
	for _, r := range roles {
		for _, d := range r.Domains {
			d = strings.ToLower(strings.TrimSpace(d))
			if d != "" && !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// ToneNames returns the known tone profile names, sorted.
func ToneNames() []string {
	names := make([]string, 0, len(Tones))
	for name := range Tones {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
