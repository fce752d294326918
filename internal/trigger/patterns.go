package trigger

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rcliao/persona-memory/internal/model"
)

// DefaultDomainPatterns are the keyword groups known for common domains.
// A role gets one domain trigger for each of its domains listed here.
var DefaultDomainPatterns = map[string][]string{
	"finance": {
		`\b(?:finance|financial|money|budget|invest|stock|market|economy)\b`,
		`\b(?:roi|revenue|profit|loss|balance sheet|income statement)\b`,
	},
	"technology": {
		`\b(?:tech|technology|software|hardware|code|program|app|application)\b`,
		`\b(?:algorithm|database|server|cloud|api|interface|frontend|backend)\b`,
	},
	"healthcare": {
		`\b(?:health|medical|doctor|patient|disease|treatment|medicine|drug)\b`,
		`\b(?:symptom|diagnosis|therapy|hospital|clinic|prescription)\b`,
	},
	"marketing": {
		`\b(?:marketing|advertise|campaign|brand|customer|audience|market)\b`,
		`\b(?:seo|ppc|conversion|lead|funnel|engagement|retention)\b`,
	},
	"legal": {
		`\b(?:legal|law|contract|agreement|compliance|regulation|policy)\b`,
		`\b(?:liability|lawsuit|attorney|court|judge|plaintiff|defendant)\b`,
	},
	"education": {
		`\b(?:education|school|teach|learn|student|course|curriculum)\b`,
		`\b(?:lesson|assignment|exam|test|grade|professor|instructor)\b`,
	},
	"creative": {
		`\b(?:creative|design|art|artist|write|writer|create|craft)\b`,
		`\b(?:story|novel|poem|script|character|plot|theme|setting)\b`,
	},
}

// domainPattern joins a domain's keyword groups into one alternation.
func domainPattern(groups []string) string {
	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = "(?:" + g + ")"
	}
	return strings.Join(parts, "|")
}

// namePattern matches a role name as a whole word.
func namePattern(name string) string {
	return `\b` + regexp.QuoteMeta(strings.ToLower(name)) + `\b`
}

// compile compiles a pattern for case-insensitive matching.
func compile(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// ValidatePattern reports whether pattern can be used as a custom trigger.
func ValidatePattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("empty pattern: %w", model.ErrInvalidPattern)
	}
	if _, err := compile(pattern); err != nil {
		return fmt.Errorf("custom pattern %q: %v: %w", pattern, err, model.ErrInvalidPattern)
	}
	return nil
}
