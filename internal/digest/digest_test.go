package digest

import (
	"strings"
	"testing"

	"github.com/rcliao/persona-memory/internal/model"
)

func mem(id, content string) model.Memory {
	return model.Memory{ID: id, RoleID: "r", Content: content}
}

func TestPackBasic(t *testing.T) {
	d := Pack([]model.Memory{
		mem("1", "Go is a statically typed language"),
		mem("2", "  "),
		mem("3", "Rust has a borrow checker"),
	}, DefaultOptions())

	if len(d.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(d.Entries))
	}
	if d.Budget != 1000 {
		t.Errorf("expected budget 1000, got %d", d.Budget)
	}
	want := "- Go is a statically typed language\n- Rust has a borrow checker"
	if d.Text() != want {
		t.Errorf("expected %q, got %q", want, d.Text())
	}
}

func TestPackBudgetLimit(t *testing.T) {
	long := strings.Repeat("This is a line about programming languages and their features.\n", 100)
	d := Pack([]model.Memory{
		mem("small", "Go is great for programming"),
		mem("big", long),
		mem("never", "not reached"),
	}, Options{Budget: 50, MinExcerpt: 100})

	if len(d.Entries) != 2 {
		t.Fatalf("expected small plus an excerpt, got %d", len(d.Entries))
	}
	if !d.Entries[1].Excerpt {
		t.Error("expected second entry to be an excerpt")
	}
	if d.Used > 50 {
		t.Errorf("used %d exceeds budget", d.Used)
	}
}

func TestPackSkipsTinyExcerpt(t *testing.T) {
	d := Pack([]model.Memory{
		mem("a", strings.Repeat("x", 150)),
		mem("b", strings.Repeat("y", 200)),
	}, Options{Budget: 50, MinExcerpt: 100})
	if len(d.Entries) != 1 {
		t.Errorf("expected only the first memory, got %d", len(d.Entries))
	}
}

func TestPackMaxItems(t *testing.T) {
	var mems []model.Memory
	for i := 0; i < 20; i++ {
		mems = append(mems, mem(string(rune('a'+i)), "note"))
	}
	d := Pack(mems, Options{Budget: 1000, MaxItems: 10})
	if len(d.Entries) != 10 {
		t.Errorf("expected 10 entries, got %d", len(d.Entries))
	}
	if !Pack(nil, DefaultOptions()).Empty() {
		t.Error("expected empty digest")
	}
}
