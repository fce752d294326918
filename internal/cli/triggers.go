package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	triggersCmd := &cobra.Command{
		Use:   "triggers",
		Short: "Inspect and edit role triggers",
	}

	list := &cobra.Command{
		Use:   "list <role>",
		Short: "List a role's triggers",
		Args:  cobra.ExactArgs(1),
		Run:   runTriggersList,
	}

	add := &cobra.Command{
		Use:   "add <role> <pattern>",
		Short: "Add a custom trigger pattern",
		Long:  "Add a case-insensitive regular expression trigger. Each new custom trigger weighs more than the previous one.",
		Args:  cobra.ExactArgs(2),
		Run:   runTriggersAdd,
	}

	rm := &cobra.Command{
		Use:   "rm <role> <pattern>",
		Short: "Remove a custom trigger pattern",
		Args:  cobra.ExactArgs(2),
		Run:   runTriggersRm,
	}

	triggersCmd.AddCommand(list, add, rm)
	RootCmd.AddCommand(triggersCmd)
}

func runTriggersList(cmd *cobra.Command, args []string) {
	a := mustApp(cmd.Context())
	defer a.Close()

	ts, err := a.svc.Detector.Triggers(cmd.Context(), args[0])
	if err != nil {
		exitErr("list triggers", err)
	}
	printJSON(ts)
}

func runTriggersAdd(cmd *cobra.Command, args []string) {
	a := mustApp(cmd.Context())
	defer a.Close()

	t, err := a.svc.AddTrigger(cmd.Context(), args[0], args[1])
	if err != nil {
		exitErr("add trigger", err)
	}
	printJSON(t)
}

func runTriggersRm(cmd *cobra.Command, args []string) {
	a := mustApp(cmd.Context())
	defer a.Close()

	removed, err := a.svc.RemoveTrigger(cmd.Context(), args[0], args[1])
	if err != nil {
		exitErr("remove trigger", err)
	}
	fmt.Printf(`{"ok":true,"removed":%t}`+"\n", removed)
}
