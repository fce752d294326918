package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/persona-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export memories as JSON",
		Long:  "Export live memories as a JSON array. Filter by role with -r.",
		Run:   runExport,
	}

	cmd.Flags().StringP("role", "r", "", "Filter by role")

	memoryCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	roleID, _ := cmd.Flags().GetString("role")

	a := mustApp(cmd.Context())
	defer a.Close()

	memories, err := a.svc.Memories.ExportAll(cmd.Context(), roleID)
	if err != nil {
		exitErr("export", err)
	}
	if memories == nil {
		memories = []model.Memory{}
	}
	printJSON(memories)
}
