// Package digest packs memories into a bounded block of prompt text.
package digest

import (
	"strings"

	"github.com/rcliao/persona-memory/internal/model"
)

// Options bounds a digest.
type Options struct {
	// Budget is the size limit in tokens, estimated at four characters each.
	Budget int
	// MaxItems caps the number of memories. Zero means no cap.
	MaxItems int
	// MinExcerpt is the smallest excerpt worth including when a memory does
	// not fit whole.
	MinExcerpt int
}

// DefaultOptions returns the default digest limits.
func DefaultOptions() Options {
	return Options{Budget: 1000, MinExcerpt: 100}
}

// Entry is one packed memory.
type Entry struct {
	MemoryID string `json:"memory_id"`
	RoleID   string `json:"role_id"`
	Content  string `json:"content"`
	Excerpt  bool   `json:"excerpt,omitempty"`
}

// Digest is the packed result.
type Digest struct {
	Budget  int     `json:"budget"`
	Used    int     `json:"used"`
	Entries []Entry `json:"entries"`
}

// Pack greedily fits memories, in the given order, into the budget. The
// first memory that does not fit whole is excerpted when enough room is
// left, and packing stops there.
func Pack(mems []model.Memory, opts Options) Digest {
	if opts.Budget <= 0 {
		opts.Budget = DefaultOptions().Budget
	}
	charBudget := opts.Budget * 4
	d := Digest{Budget: opts.Budget, Entries: []Entry{}}

	used := 0
	for _, m := range mems {
		if opts.MaxItems > 0 && len(d.Entries) >= opts.MaxItems {
			break
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if used+len(content) <= charBudget {
			d.Entries = append(d.Entries, Entry{MemoryID: m.ID, RoleID: m.RoleID, Content: content})
			used += len(content)
			continue
		}
		if remaining := charBudget - used; remaining >= opts.MinExcerpt && remaining > 0 {
			ex, _ := Excerpt(content, remaining)
			if ex != "" {
				d.Entries = append(d.Entries, Entry{MemoryID: m.ID, RoleID: m.RoleID, Content: ex, Excerpt: true})
				used += len(ex)
			}
		}
		break
	}

	d.Used = used / 4
	return d
}

// Text renders the digest as a bulleted list.
func (d Digest) Text() string {
	var b strings.Builder
	for i, e := range d.Entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(e.Content)
	}
	return b.String()
}

// Empty reports whether nothing was packed.
func (d Digest) Empty() bool { return len(d.Entries) == 0 }
