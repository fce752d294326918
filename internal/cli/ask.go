package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-memory/internal/advisor"
	"github.com/rcliao/persona-memory/internal/session"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ask [query]",
		Short: "Ask a question in a session",
		Long: "Route the query to the best role for the session, answer with that persona " +
			"and store the exchange in the role's memory.",
		Args: cobra.MinimumNArgs(1),
		Run:  runAsk,
	}

	cmd.Flags().StringP("session", "s", "", "Session id (required)")
	cmd.Flags().String("force-role", "", "Answer with this role regardless of triggers")
	cmd.Flags().StringP("instructions", "i", "", "Additional instructions for this query")
	cmd.Flags().Bool("stream", false, "Stream the response as text")

	cmd.MarkFlagRequired("session")

	RootCmd.AddCommand(cmd)
}

func runAsk(cmd *cobra.Command, args []string) {
	sessionID, _ := cmd.Flags().GetString("session")
	force, _ := cmd.Flags().GetString("force-role")
	instructions, _ := cmd.Flags().GetString("instructions")
	stream, _ := cmd.Flags().GetBool("stream")

	a := mustApp(cmd.Context())
	defer a.Close()

	p := advisor.AskParams{
		SessionID:    sessionID,
		Query:        strings.Join(args, " "),
		ForceRoleID:  force,
		Instructions: instructions,
	}

	if !stream {
		ans, err := a.svc.Ask(cmd.Context(), p)
		if err != nil {
			exitErr("ask", err)
		}
		printJSON(ans)
		return
	}

	ans, err := a.svc.AskStream(cmd.Context(), p, reportSwitch, func(chunk string) {
		fmt.Print(chunk)
	})
	fmt.Println()
	if err != nil {
		exitErr("ask", err)
	}
	if ans.MemoryStatus == advisor.MemoryUnavailable {
		fmt.Fprintf(os.Stderr, "warning: memory ranking unavailable: %s\n", ans.MemoryError)
	}
}

// reportSwitch writes a role change to stderr.
func reportSwitch(d session.Decision) {
	if d.Switched {
		fmt.Fprintf(os.Stderr, "[%s -> %s] %s\n", d.FromRoleID, d.RoleID, d.Reason)
	}
}
