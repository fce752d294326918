package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-memory/internal/digest"
	"github.com/rcliao/persona-memory/internal/model"
	"github.com/rcliao/persona-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "relevant [query]",
		Short: "Rank memories against a query",
		Long:  "Embed the query, rank candidate memories, then greedily pack them into a token budget.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRelevant,
	}

	cmd.Flags().StringP("role", "r", "", "Role to rank for")
	cmd.Flags().String("category", "", "Filter by category")
	cmd.Flags().StringSliceP("tags", "t", nil, "Boost and filter by tags")
	cmd.Flags().IntP("limit", "l", 5, "Max memories")
	cmd.Flags().Bool("cross-role", false, "Rank memories from every role")
	cmd.Flags().Bool("related", false, "Rank memories from roles related by inheritance or sharing")
	cmd.Flags().Bool("no-shared", false, "Exclude shared copies")
	cmd.Flags().IntP("budget", "b", 1000, "Max tokens in the digest")

	memoryCmd.AddCommand(cmd)
}

func runRelevant(cmd *cobra.Command, args []string) {
	roleID, _ := cmd.Flags().GetString("role")
	category, _ := cmd.Flags().GetString("category")
	tags, _ := cmd.Flags().GetStringSlice("tags")
	limit, _ := cmd.Flags().GetInt("limit")
	crossRole, _ := cmd.Flags().GetBool("cross-role")
	related, _ := cmd.Flags().GetBool("related")
	noShared, _ := cmd.Flags().GetBool("no-shared")
	budget, _ := cmd.Flags().GetInt("budget")
	query := strings.Join(args, " ")

	if roleID == "" && !crossRole {
		exitErr("relevant", fmt.Errorf("--role or --cross-role is required"))
	}

	a := mustApp(cmd.Context())
	defer a.Close()

	if a.emb == nil {
		exitErr("relevant", fmt.Errorf("no embedding provider configured"))
	}
	vec, err := a.emb.Embed(cmd.Context(), query)
	if err != nil {
		exitErr("relevant", fmt.Errorf("%w: %v", model.ErrProviderDegraded, err))
	}

	p := store.RelevantParams{
		RoleID:     roleID,
		Embedding:  vec,
		Limit:      limit,
		Category:   category,
		Tags:       tags,
		SkipShared: noShared,
		CrossRole:  crossRole,
	}
	if related && roleID != "" {
		ids, err := a.svc.Memories.RelatedRoles(cmd.Context(), roleID)
		if err != nil {
			exitErr("relevant", err)
		}
		p.RelatedRoleIDs = ids
	}

	ranked, err := a.svc.Memories.Relevant(cmd.Context(), p)
	if err != nil {
		exitErr("relevant", err)
	}
	if ranked == nil {
		ranked = []store.Ranked{}
	}
	mems := make([]model.Memory, len(ranked))
	for i, r := range ranked {
		mems[i] = r.Memory
	}

	printJSON(map[string]any{
		"ranked": ranked,
		"digest": digest.Pack(mems, digest.Options{Budget: budget, MinExcerpt: 100}),
	})
}
