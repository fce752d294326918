package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-memory/internal/model"
	"github.com/rcliao/persona-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put [content]",
		Short: "Store a memory for a role",
		Long:  "Store a memory. Content can be a positional arg or piped via stdin. The configured embedder, if any, embeds it.",
		Run:   runPut,
	}

	cmd.Flags().StringP("role", "r", "", "Role (required)")
	cmd.Flags().String("type", "session", "Type: session, user, knowledge")
	cmd.Flags().StringP("importance", "p", "medium", "Importance: low, medium, high")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().String("category", "", "Category")
	cmd.Flags().String("share", "", "Comma-separated roles that receive a copy")

	cmd.MarkFlagRequired("role")

	memoryCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	roleID, _ := cmd.Flags().GetString("role")
	typ, _ := cmd.Flags().GetString("type")
	importance, _ := cmd.Flags().GetString("importance")
	tagsStr, _ := cmd.Flags().GetString("tags")
	category, _ := cmd.Flags().GetString("category")
	share, _ := cmd.Flags().GetString("share")

	// Get content: positional arg first, then check stdin
	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}

	if strings.TrimSpace(content) == "" {
		exitErr("put", fmt.Errorf("content is required (positional arg or stdin)"))
	}
	content = strings.TrimSpace(content)

	a := mustApp(cmd.Context())
	defer a.Close()

	p := store.PutParams{
		RoleID:     roleID,
		Content:    content,
		Type:       model.MemoryType(typ),
		Importance: model.Importance(importance),
		Tags:       splitList(tagsStr),
		Category:   category,
		SharedWith: splitList(share),
	}
	if a.emb != nil {
		vec, err := a.emb.Embed(cmd.Context(), content)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: stored without embedding: %v\n", err)
		} else {
			p.Embedding = vec
		}
	}

	mem, err := a.svc.Memories.Put(cmd.Context(), p)
	if err != nil {
		exitErr("put", err)
	}
	printJSON(mem)
}
