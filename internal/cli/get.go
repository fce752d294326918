package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get <role> <id>",
		Short: "Retrieve one memory",
		Args:  cobra.ExactArgs(2),
		Run:   runGet,
	}

	memoryCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	a := mustApp(cmd.Context())
	defer a.Close()

	mem, err := a.svc.Memories.Get(cmd.Context(), args[0], args[1])
	if err != nil {
		exitErr("get", err)
	}
	printJSON(mem)
}
