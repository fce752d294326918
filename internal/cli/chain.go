package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	chain := &cobra.Command{
		Use:   "chain <role>",
		Short: "Show the roles a role inherits memories from",
		Args:  cobra.ExactArgs(1),
		Run:   runChain,
	}

	related := &cobra.Command{
		Use:   "related <role>",
		Short: "Show roles related by inheritance or sharing",
		Args:  cobra.ExactArgs(1),
		Run:   runRelated,
	}

	memoryCmd.AddCommand(chain, related)
}

func runChain(cmd *cobra.Command, args []string) {
	a := mustApp(cmd.Context())
	defer a.Close()

	roles, err := a.svc.Memories.InheritanceChain(cmd.Context(), args[0])
	if err != nil {
		exitErr("chain", err)
	}
	ids := make([]string, len(roles))
	for i, r := range roles {
		ids[i] = r.ID
	}
	printJSON(ids)
}

func runRelated(cmd *cobra.Command, args []string) {
	a := mustApp(cmd.Context())
	defer a.Close()

	ids, err := a.svc.Memories.RelatedRoles(cmd.Context(), args[0])
	if err != nil {
		exitErr("related", err)
	}
	if ids == nil {
		ids = []string{}
	}
	printJSON(ids)
}
