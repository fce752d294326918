package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-memory/internal/model"
	"github.com/rcliao/persona-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete a role's memories",
		Long:  "Delete the memories of one role that match every given filter. With no filters the whole partition is cleared.",
		Run:   runClear,
	}

	cmd.Flags().StringP("role", "r", "", "Role (required)")
	cmd.Flags().String("type", "", "Only this type")
	cmd.Flags().String("category", "", "Only this category")
	cmd.Flags().StringP("tags", "t", "", "Only memories with any of these tags (comma-separated)")
	cmd.Flags().Bool("shared-only", false, "Only copies shared from other roles")

	cmd.MarkFlagRequired("role")

	memoryCmd.AddCommand(cmd)
}

func runClear(cmd *cobra.Command, args []string) {
	roleID, _ := cmd.Flags().GetString("role")
	typ, _ := cmd.Flags().GetString("type")
	category, _ := cmd.Flags().GetString("category")
	tagsStr, _ := cmd.Flags().GetString("tags")
	sharedOnly, _ := cmd.Flags().GetBool("shared-only")

	a := mustApp(cmd.Context())
	defer a.Close()

	n, err := a.svc.Memories.Clear(cmd.Context(), store.ClearParams{
		RoleID:     roleID,
		Type:       model.MemoryType(typ),
		Category:   category,
		Tags:       splitList(tagsStr),
		SharedOnly: sharedOnly,
	})
	if err != nil {
		exitErr("clear", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"role_id":%q,"removed":%d}`+"\n", roleID, n)
}
