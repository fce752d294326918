package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "share <role> <id>",
		Short: "Share an existing memory with more roles",
		Long:  "Add roles to a memory's shared_with list. Each listed role without a copy receives one with the original's expiry.",
		Args:  cobra.ExactArgs(2),
		Run:   runShare,
	}
	cmd.Flags().String("with", "", "Comma-separated roles that receive a copy (required)")
	cmd.MarkFlagRequired("with")

	memoryCmd.AddCommand(cmd)
}

func runShare(cmd *cobra.Command, args []string) {
	with, _ := cmd.Flags().GetString("with")
	targets := splitList(with)
	if len(targets) == 0 {
		exitErr("share", fmt.Errorf("--with needs at least one role"))
	}

	a := mustApp(cmd.Context())
	defer a.Close()

	mem, err := a.svc.Memories.Share(cmd.Context(), args[0], args[1], targets)
	if err != nil {
		exitErr("share", err)
	}
	printJSON(mem)
}
