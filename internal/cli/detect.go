package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-memory/internal/trigger"
)

func init() {
	cmd := &cobra.Command{
		Use:   "detect [query]",
		Short: "Score every role against a query",
		Long:  "Show per-role trigger scores for a query and the role that would be picked from --current.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runDetect,
	}

	cmd.Flags().String("current", "", "Current role for the hysteresis check")

	RootCmd.AddCommand(cmd)
}

func runDetect(cmd *cobra.Command, args []string) {
	current, _ := cmd.Flags().GetString("current")
	query := strings.Join(args, " ")

	a := mustApp(cmd.Context())
	defer a.Close()

	scores, err := a.svc.Detector.Detect(cmd.Context(), query)
	if err != nil {
		exitErr("detect", err)
	}
	if scores == nil {
		scores = []trigger.Score{}
	}
	best, ok, err := a.svc.Detector.Pick(scores, current)
	if err != nil {
		exitErr("detect", err)
	}

	out := map[string]any{"query": query, "scores": scores}
	if ok {
		out["best_role"] = best
	}
	printJSON(out)
}
