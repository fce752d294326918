// Package cli implements the persona-memory CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dbPath     string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "persona-memory",
	Short: "Role personas with role-scoped memory",
	Long: "Routes queries to advisor personas using weighted triggers and keeps per-role memory " +
		"with expiry, sharing and inheritance. SQLite-backed, single binary.",
}

// memoryCmd groups the memory store commands.
var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Store, list, rank and maintain role memories",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $PERSONA_MEMORY_CONFIG or ~/.persona-memory/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path; forces the sqlite backend")
	RootCmd.AddCommand(memoryCmd)
}

func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("PERSONA_MEMORY_CONFIG"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return home + "/.persona-memory/config.yaml"
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// splitList parses a comma-separated flag value.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
