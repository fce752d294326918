package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/persona-memory/internal/advisor"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive session with automatic role switching",
		Long: "Start an interactive session. Lines are answered by the best role; " +
			"/switch <role>, /history, /roles and exit are commands.",
		Run: runChat,
	}

	cmd.Flags().StringP("role", "r", "ceo-advisor", "Initial role")
	cmd.Flags().StringP("session", "s", "", "Resume an existing session")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	roleID, _ := cmd.Flags().GetString("role")
	sessionID, _ := cmd.Flags().GetString("session")

	a := mustApp(cmd.Context())
	defer a.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if sessionID == "" {
		s, err := a.svc.Sessions.Create(ctx, "", roleID)
		if err != nil {
			exitErr("start session", err)
		}
		sessionID = s.ID
	} else if _, err := a.svc.Sessions.Get(ctx, sessionID); err != nil {
		exitErr("resume session", err)
	}

	a.runMaintenance(ctx)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          promptFor(roleID),
		HistoryFile:     filepath.Join(os.TempDir(), ".persona_memory_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		exitErr("readline", err)
	}
	defer rl.Close()

	fmt.Printf("session %s (Ctrl+C to exit)\n\n", sessionID)
	for {
		if s, err := a.svc.Sessions.Get(ctx, sessionID); err == nil {
			rl.SetPrompt(promptFor(s.CurrentRoleID))
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		switch {
		case input == "":
			continue
		case input == "exit" || input == "quit":
			fmt.Println("Goodbye!")
			return
		case strings.HasPrefix(input, "/"):
			a.chatCommand(ctx, sessionID, input)
			continue
		}

		_, err = a.svc.AskStream(ctx, advisor.AskParams{SessionID: sessionID, Query: input}, reportSwitch,
			func(chunk string) { fmt.Print(chunk) })
		fmt.Print("\n\n")
		if err != nil {
			fmt.Printf("Error: %v\n\n", err)
		}
	}
}

func (a *app) chatCommand(ctx context.Context, sessionID, input string) {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/switch":
		if len(fields) < 2 {
			fmt.Println("usage: /switch <role>")
			return
		}
		_, d, err := a.svc.Sessions.ManualSwitch(ctx, sessionID, fields[1], "")
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		reportSwitch(d)
	case "/history":
		h, err := a.svc.Sessions.History(ctx, sessionID)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		for _, e := range h {
			fmt.Printf("%s  %s -> %s  %s\n", e.Timestamp.Format("15:04:05"), e.FromRoleID, e.ToRoleID, e.Reason)
		}
	case "/roles":
		roles, err := a.svc.Roles.List(ctx)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		for _, r := range roles {
			fmt.Printf("%-20s %s\n", r.ID, r.Name)
		}
	default:
		fmt.Printf("unknown command %s\n", fields[0])
	}
}

// runMaintenance starts the configured sweeper and evictor until ctx ends.
func (a *app) runMaintenance(ctx context.Context) {
	if expr := a.cfg.Memory.SweepSchedule; expr != "" {
		go func() {
			if err := a.svc.Memories.RunSweeper(ctx, expr); err != nil {
				a.log.Warn("memory sweeper stopped", zap.Error(err))
			}
		}()
	}
	if expr := a.cfg.Sessions.EvictSchedule; expr != "" && a.cfg.Sessions.IdleTimeout > 0 {
		go func() {
			if err := a.svc.Sessions.RunEvictor(ctx, expr); err != nil {
				a.log.Warn("session evictor stopped", zap.Error(err))
			}
		}()
	}
}

func promptFor(roleID string) string {
	return fmt.Sprintf("[%s] You: ", roleID)
}
