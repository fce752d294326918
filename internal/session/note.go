package session

import (
	"fmt"
	"strings"

	"github.com/rcliao/persona-memory/internal/model"
)

// TransitionNote tells the downstream model that the persona changed.
func TransitionNote(from, to model.Role) string {
	return fmt.Sprintf("You are switching from the role of %s to %s.\n"+
		"The user's query appears to be more relevant to your expertise as %s.\n"+
		"Previous role description: %s\n"+
		"Your new role description: %s",
		displayName(from), displayName(to), displayName(to), from.Description, to.Description)
}

// MergeInstructions puts the transition note ahead of any custom
// instructions.
func MergeInstructions(note, custom string) string {
	note = strings.TrimSpace(note)
	custom = strings.TrimSpace(custom)
	switch {
	case note == "":
		return custom
	case custom == "":
		return note
	default:
		return note + "\n\n" + custom
	}
}

func displayName(r model.Role) string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}
