package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage conversation sessions",
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start a session on a role",
		Run:   runSessionStart,
	}
	start.Flags().String("id", "", "Session id (default: generated)")
	start.Flags().StringP("role", "r", "", "Initial role (required)")
	start.MarkFlagRequired("role")

	sw := &cobra.Command{
		Use:   "switch <session> <role>",
		Short: "Switch a session to another role",
		Args:  cobra.ExactArgs(2),
		Run:   runSessionSwitch,
	}
	sw.Flags().String("reason", "", "Reason recorded in the history")

	history := &cobra.Command{
		Use:   "history <session>",
		Short: "Show a session's role switches",
		Args:  cobra.ExactArgs(1),
		Run:   runSessionHistory,
	}

	show := &cobra.Command{
		Use:   "show <session>",
		Short: "Show a session",
		Args:  cobra.ExactArgs(1),
		Run:   runSessionShow,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		Run:   runSessionList,
	}

	closeCmd := &cobra.Command{
		Use:   "close <session>",
		Short: "Close a session",
		Args:  cobra.ExactArgs(1),
		Run:   runSessionClose,
	}

	evict := &cobra.Command{
		Use:   "evict",
		Short: "Remove sessions idle longer than the configured timeout",
		Run:   runSessionEvict,
	}

	sessionCmd.AddCommand(start, sw, history, show, list, closeCmd, evict)
	RootCmd.AddCommand(sessionCmd)
}

func runSessionStart(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	roleID, _ := cmd.Flags().GetString("role")

	a := mustApp(cmd.Context())
	defer a.Close()

	s, err := a.svc.Sessions.Create(cmd.Context(), id, roleID)
	if err != nil {
		exitErr("start session", err)
	}
	printJSON(s)
}

func runSessionSwitch(cmd *cobra.Command, args []string) {
	reason, _ := cmd.Flags().GetString("reason")

	a := mustApp(cmd.Context())
	defer a.Close()

	s, d, err := a.svc.Sessions.ManualSwitch(cmd.Context(), args[0], args[1], reason)
	if err != nil {
		exitErr("switch", err)
	}
	printJSON(map[string]any{"session": s, "decision": d})
}

func runSessionHistory(cmd *cobra.Command, args []string) {
	a := mustApp(cmd.Context())
	defer a.Close()

	h, err := a.svc.Sessions.History(cmd.Context(), args[0])
	if err != nil {
		exitErr("history", err)
	}
	printJSON(h)
}

func runSessionShow(cmd *cobra.Command, args []string) {
	a := mustApp(cmd.Context())
	defer a.Close()

	s, err := a.svc.Sessions.Get(cmd.Context(), args[0])
	if err != nil {
		exitErr("show session", err)
	}
	printJSON(s)
}

func runSessionList(cmd *cobra.Command, args []string) {
	a := mustApp(cmd.Context())
	defer a.Close()

	ss, err := a.svc.Sessions.List(cmd.Context())
	if err != nil {
		exitErr("list sessions", err)
	}
	printJSON(ss)
}

func runSessionClose(cmd *cobra.Command, args []string) {
	a := mustApp(cmd.Context())
	defer a.Close()

	closed, err := a.svc.Sessions.Close(cmd.Context(), args[0])
	if err != nil {
		exitErr("close session", err)
	}
	fmt.Printf(`{"ok":true,"closed":%t}`+"\n", closed)
}

func runSessionEvict(cmd *cobra.Command, args []string) {
	a := mustApp(cmd.Context())
	defer a.Close()

	n, err := a.svc.Sessions.EvictIdle(cmd.Context())
	if err != nil {
		exitErr("evict", err)
	}
	fmt.Printf(`{"ok":true,"evicted":%d}`+"\n", n)
}
