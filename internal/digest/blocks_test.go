package digest

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExcerpt_ShortContent(t *testing.T) {
	text := "This is a short memory."
	got, truncated := Excerpt(text, 100)
	if truncated {
		t.Error("expected no truncation")
	}
	if got != text {
		t.Errorf("expected %q, got %q", text, got)
	}
}

func TestExcerpt_KeepsWholeBlocks(t *testing.T) {
	section := strings.Repeat("Some content filling space. ", 4) // ~112 chars
	text := "# Section One\n" + section + "\n\n# Section Two\n" + section + "\n\n# Section Three\n" + section

	got, truncated := Excerpt(text, 300)
	if !truncated {
		t.Fatal("expected truncation")
	}
	if !strings.Contains(got, "Section Two") || strings.Contains(got, "Section Three") {
		t.Errorf("expected first two sections, got %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipsis, got %q", got)
	}
	if len(got) > 300 {
		t.Errorf("excerpt exceeds limit: %d", len(got))
	}
}

func TestExcerpt_FallsBackToLines(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, "This is a line of text that is about fifty characters long.")
	}
	text := strings.Join(lines, "\n")

	got, truncated := Excerpt(text, 200)
	if !truncated {
		t.Fatal("expected truncation")
	}
	if n := strings.Count(got, "\n"); n != 2 {
		t.Errorf("expected three whole lines, got %d newlines in %q", n, got)
	}
}

func TestExcerpt_CutsOnRuneBoundary(t *testing.T) {
	text := strings.Repeat("é", 100)
	got, truncated := Excerpt(text, 20)
	if !truncated {
		t.Fatal("expected truncation")
	}
	if !utf8.ValidString(got) {
		t.Errorf("excerpt split a rune: %q", got)
	}
	if len(got) > 20 {
		t.Errorf("excerpt exceeds limit: %d", len(got))
	}
}

func TestSplitBlocks(t *testing.T) {
	text := "# A\n\nShort.\n\n# B\nAlso short.\nSecond line."
	blocks := splitBlocks(text)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d: %q", len(blocks), blocks)
	}
	if blocks[2] != "# B\nAlso short.\nSecond line." {
		t.Errorf("unexpected last block %q", blocks[2])
	}
}
