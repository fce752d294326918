package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-memory/internal/model"
	"github.com/rcliao/persona-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search a role's memories by keyword",
		Long:  "Search memory content for matching text. Works without embeddings.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringP("role", "r", "", "Role (required)")
	cmd.Flags().String("type", "", "Filter by type")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	cmd.MarkFlagRequired("role")

	memoryCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	roleID, _ := cmd.Flags().GetString("role")
	typ, _ := cmd.Flags().GetString("type")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	a := mustApp(cmd.Context())
	defer a.Close()

	results, err := a.svc.Memories.Search(cmd.Context(), store.SearchParams{
		RoleID: roleID,
		Query:  query,
		Type:   model.MemoryType(typ),
		Limit:  limit,
	})
	if err != nil {
		exitErr("search", err)
	}

	if len(results) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(results)
}
