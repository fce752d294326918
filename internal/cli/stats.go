package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/persona-memory/internal/kv"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory and database statistics",
		Run:   runStats,
	}

	memoryCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	a := mustApp(cmd.Context())
	defer a.Close()

	stats, err := a.svc.Memories.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	out := map[string]any{"memories": stats, "backend": a.cfg.Storage.Backend}
	if a.db != nil {
		buckets, err := a.db.Stats(cmd.Context())
		if err != nil {
			exitErr("stats", err)
		}
		if buckets == nil {
			buckets = []kv.BucketStats{}
		}
		out["db_path"] = a.db.Path()
		out["buckets"] = buckets
	}
	printJSON(out)
}
