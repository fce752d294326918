package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-memory/internal/model"
	"github.com/rcliao/persona-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a role's memories, inherited ones included",
		Run:   runList,
	}

	cmd.Flags().StringP("role", "r", "", "Role (required)")
	cmd.Flags().String("type", "", "Filter by type")
	cmd.Flags().String("category", "", "Filter by category")
	cmd.Flags().StringP("tags", "t", "", "Filter by tags (comma-separated, any match)")
	cmd.Flags().Bool("no-shared", false, "Exclude copies shared from other roles")
	cmd.Flags().Bool("shared-only", false, "Only copies shared with this role by other roles")
	cmd.Flags().Bool("no-inherited", false, "Exclude memories inherited from parent roles")
	cmd.Flags().IntP("limit", "l", 0, "Max results (0 for all)")
	cmd.Flags().Bool("ids-only", false, "Only output role/id pairs")

	cmd.MarkFlagRequired("role")
	cmd.MarkFlagsMutuallyExclusive("no-shared", "shared-only")

	memoryCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	roleID, _ := cmd.Flags().GetString("role")
	typ, _ := cmd.Flags().GetString("type")
	category, _ := cmd.Flags().GetString("category")
	tagsStr, _ := cmd.Flags().GetString("tags")
	noShared, _ := cmd.Flags().GetBool("no-shared")
	sharedOnly, _ := cmd.Flags().GetBool("shared-only")
	noInherited, _ := cmd.Flags().GetBool("no-inherited")
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	a := mustApp(cmd.Context())
	defer a.Close()

	memories, err := a.svc.Memories.List(cmd.Context(), store.ListParams{
		RoleID:        roleID,
		Type:          model.MemoryType(typ),
		Category:      category,
		Tags:          splitList(tagsStr),
		SkipShared:    noShared,
		SharedOnly:    sharedOnly,
		SkipInherited: noInherited,
	})
	if err != nil {
		exitErr("list", err)
	}
	if limit > 0 && len(memories) > limit {
		memories = memories[:limit]
	}

	if idsOnly {
		for _, m := range memories {
			fmt.Printf("%s/%s\n", m.RoleID, m.ID)
		}
		return
	}
	if memories == nil {
		memories = []model.Memory{}
	}
	printJSON(memories)
}
