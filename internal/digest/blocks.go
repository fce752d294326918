package digest

import (
	"strings"
	"unicode/utf8"
)

// splitBlocks splits text on markdown headings and blank lines.
func splitBlocks(text string) []string {
	lines := strings.Split(text, "\n")
	var blocks []string
	var current []string

	flush := func() {
		if t := strings.TrimSpace(strings.Join(current, "\n")); t != "" {
			blocks = append(blocks, t)
		}
		current = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && len(current) > 0 {
			flush()
		}
		if trimmed == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return blocks
}

// Excerpt shortens text to at most max bytes. It keeps whole leading blocks
// when at least one fits, then whole lines of the first block, and only then
// cuts mid-line. truncated reports whether anything was dropped.
func Excerpt(text string, max int) (excerpt string, truncated bool) {
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text, false
	}
	if max <= len(ellipsis) {
		return "", true
	}
	limit := max - len(ellipsis)

	var kept []string
	used := 0
	for _, b := range splitBlocks(text) {
		add := len(b)
		if len(kept) > 0 {
			add += 2
		}
		if used+add > limit {
			break
		}
		kept = append(kept, b)
		used += add
	}
	if len(kept) > 0 {
		return strings.Join(kept, "\n\n") + ellipsis, true
	}

	var lines []string
	used = 0
	for _, line := range strings.Split(text, "\n") {
		add := len(line)
		if len(lines) > 0 {
			add++
		}
		if used+add > limit {
			break
		}
		lines = append(lines, line)
		used += add
	}
	if len(lines) > 0 {
		return strings.TrimSpace(strings.Join(lines, "\n")) + ellipsis, true
	}

	return cutRunes(text, limit) + ellipsis, true
}

const ellipsis = "..."

// cutRunes returns the longest prefix of s within n bytes that does not
// split a UTF-8 sequence.
func cutRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
