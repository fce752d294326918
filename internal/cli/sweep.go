package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Purge expired memories from every role",
		Run:   runSweep,
	}

	memoryCmd.AddCommand(cmd)
}

func runSweep(cmd *cobra.Command, args []string) {
	a := mustApp(cmd.Context())
	defer a.Close()

	n, err := a.svc.Memories.Sweep(cmd.Context())
	if err != nil {
		exitErr("sweep", err)
	}
	fmt.Printf(`{"ok":true,"purged":%d}`+"\n", n)
}
